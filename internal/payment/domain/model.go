package domain

import (
	"context"
	"errors"
)

// Processor is the payment-processor surface the billing core depends on.
// Amounts are in cents; micro-USD conversion happens at the caller.
type Processor interface {
	// ChargeOffSession charges the customer's saved payment method without
	// the customer present and returns the payment intent id.
	ChargeOffSession(ctx context.Context, customerID string, cents int64, accountID string) (string, error)

	// TransferToConnected sends cents to a connected external destination.
	// The idempotency key must be stable across retries of the same logical
	// transfer so a lost response can never double-pay.
	TransferToConnected(ctx context.Context, destinationID string, cents int64, idempotencyKey string) (string, error)
}

var (
	ErrInvalidConfig   = errors.New("invalid_config")
	ErrNoPaymentMethod = errors.New("no_payment_method")
	ErrChargeDeclined  = errors.New("charge_declined")
	ErrTransferFailed  = errors.New("transfer_failed")
)
