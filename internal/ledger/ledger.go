// Package ledger is a typed client for the external double-entry ledger
// service that holds authoritative prepaid balances. All amounts are
// non-negative integers in micro-USD (1e-6 USD); the ledger service is the
// single source of truth and serializes conflicting operations per account,
// so this client keeps no cached balance state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// Code tags a pending transfer with its business purpose.
type Code uint16

const (
	CodeUsage  Code = 1
	CodePayout Code = 2
	CodeEscrow Code = 3
	CodeReload Code = 4
	CodeHire   Code = 5
)

// Default pending-transfer timeouts, in seconds. Long enough for one unit
// of work, short enough that funds stuck by a crashed caller self-heal.
const (
	DefaultUsageTimeout  = 300
	DefaultPayoutTimeout = 600
)

// Account mirrors the ledger service's account row.
type Account struct {
	ID             ID     `json:"id"`
	Ledger         uint32 `json:"ledger"`
	CreditsPosted  int64  `json:"credits_posted,string"`
	DebitsPosted   int64  `json:"debits_posted,string"`
	CreditsPending int64  `json:"credits_pending,string"`
	DebitsPending  int64  `json:"debits_pending,string"`
	Flags          uint16 `json:"flags"`
}

var (
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrPlatformAccount     = errors.New("platform_account_forbidden")
	ErrRequestFailed       = errors.New("ledger_request_failed")
)

// Service is the ledger RPC surface consumed by the billing core.
type Service interface {
	CreateAccount(ctx context.Context, id ID) error
	LookupAccount(ctx context.Context, id ID) (*Account, error)
	LookupAccounts(ctx context.Context, ids []ID) ([]Account, error)

	// Reserve creates a pending transfer debiting the account. The ledger
	// rejects reservations the available balance cannot cover. The pending
	// transfer auto-expires server-side after timeoutSeconds unless posted
	// or voided first.
	Reserve(ctx context.Context, debitAccount ID, amount int64, timeoutSeconds int64, code Code) (ID, error)

	// Post finalizes a pending transfer for exactly amount, which may be
	// lower than the reservation; the difference is released automatically.
	Post(ctx context.Context, pendingID ID, amount int64) error

	// Void releases a pending transfer without debiting.
	Void(ctx context.Context, pendingID ID) error

	Debit(ctx context.Context, account ID, amount int64) error
	Fund(ctx context.Context, account ID, amount int64) error

	// Transfer moves amount between user accounts, atomically retaining the
	// platform fee as a second linked operation.
	Transfer(ctx context.Context, from ID, to ID, amount int64) error

	Bootstrap(ctx context.Context) error
}

// Available returns the spendable balance: posted credits minus posted and
// pending debits. A negative result means the ledger's own overdraw guard
// was violated, which is unrecoverable corruption.
func Available(a Account) int64 {
	v := a.CreditsPosted - a.DebitsPosted - a.DebitsPending
	if v < 0 {
		panic(fmt.Sprintf("ledger corruption: account %s available balance %d", a.ID, v))
	}
	return v
}

// Fee ceiling-rounds amount*bps/10000 so rounding can never produce a free
// transfer. Callers must not pass non-positive amounts or rates.
func Fee(amount int64, bps int64) int64 {
	if amount <= 0 {
		panic(fmt.Sprintf("fee on non-positive amount %d", amount))
	}
	if bps <= 0 {
		panic(fmt.Sprintf("fee with non-positive rate %d", bps))
	}
	product := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bps))
	product.Add(product, big.NewInt(9999))
	product.Quo(product, big.NewInt(10000))
	if !product.IsInt64() {
		panic(fmt.Sprintf("fee overflow: amount %d bps %d", amount, bps))
	}
	return product.Int64()
}
