package domain

import (
	"context"
	"errors"
	"time"
)

// RecordUsageRequest describes one billable event.
type RecordUsageRequest struct {
	AccountID string  `json:"account_id"`
	Resource  string  `json:"resource"`
	Amount    int64   `json:"amount"`
	Cost      int64   `json:"cost"` // micro-USD
	HireID    *string `json:"hire_id,omitempty"`
}

type ListUsageRequest struct {
	AccountID string `json:"account_id"`
	Limit     int    `json:"limit"`
}

// Service is the single entry point every subsystem calls to spend money.
type Service interface {
	RecordUsage(context.Context, RecordUsageRequest) error
	List(context.Context, ListUsageRequest) ([]UsageRecord, error)

	// MonthlySpend sums cost for the UTC calendar month containing now.
	MonthlySpend(ctx context.Context, accountID string, now time.Time) (int64, error)
}

var (
	ErrInvalidAccount  = errors.New("invalid_account")
	ErrInvalidResource = errors.New("invalid_resource")
)
