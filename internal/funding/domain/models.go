// Package domain contains the per-account billing configuration and the
// funding gate contract.
package domain

import (
	"context"
	"errors"
	"time"
)

// BillingConfig is mutated only by account settings; this core reads it.
// Amount fields are micro-USD.
type BillingConfig struct {
	AccountID           string    `gorm:"primaryKey;type:text"`
	AutoReloadThreshold int64     `gorm:"not null;default:0"`
	AutoReloadTarget    int64     `gorm:"not null;default:0"`
	MonthlySpendLimit   int64     `gorm:"not null;default:0"`
	StripeCustomerID    string    `gorm:"type:text;not null;default:''"`
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingConfig) TableName() string { return "billing_configs" }

type Service interface {
	// EnsureFunded blocks billable work until the account balance is above
	// its reload threshold, charging the saved payment method if needed.
	// Callers must treat it as a potentially slow path (card round-trip).
	EnsureFunded(ctx context.Context, accountID string) error

	// AutoReload recharges the account from its saved payment method when
	// the balance is below threshold. It reports whether a charge landed.
	AutoReload(ctx context.Context, accountID string) (bool, error)

	// UpsertConfig provisions or updates an account's billing config.
	UpsertConfig(ctx context.Context, cfg BillingConfig) error
}

var (
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInsufficientFunds = errors.New("insufficient_funds")
)
