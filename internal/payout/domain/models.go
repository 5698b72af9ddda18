// Package domain contains the payout saga row and its contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the saga state machine: reserved -> transferred -> completed,
// with reserved -> failed and transferred (stuck, warning) as the two
// recovery branches.
type Status string

const (
	StatusReserved    Status = "reserved"
	StatusTransferred Status = "transferred"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Payout tracks one withdrawal saga. Owned exclusively by the saga
// coordinator; never mutated by any other component. Amounts are micro-USD.
type Payout struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	AccountID         string       `gorm:"type:text;not null;index"`
	Amount            int64        `gorm:"not null"`
	Fee               int64        `gorm:"not null"`
	Net               int64        `gorm:"not null"`
	PendingTransferID *string      `gorm:"type:text"`
	StripeTransferID  *string      `gorm:"type:text"`
	Status            Status       `gorm:"type:text;not null;index"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payout) TableName() string { return "payouts" }

type ProcessPayoutRequest struct {
	AccountID     string `json:"account_id"`
	DestinationID string `json:"destination_id"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Net           int64  `json:"net"`
}

// Result reports a finished payout. A non-empty Warning means the money
// left the platform but the ledger debit is still pending settlement.
type Result struct {
	Amount  int64  `json:"amount"`
	Fee     int64  `json:"fee"`
	Net     int64  `json:"net"`
	Warning string `json:"warning,omitempty"`
}

type Service interface {
	ProcessPayout(context.Context, ProcessPayoutRequest) (*Result, error)
	List(ctx context.Context, accountID string, limit int) ([]Payout, error)
}

var (
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDestination  = errors.New("invalid_destination")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrTransferFailed      = errors.New("transfer_failed")
)
