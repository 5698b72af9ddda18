package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/principalgrid/billing/internal/config"
	"go.uber.org/zap"
)

// Client talks HTTP to the ledger service. Every call is a blocking RPC;
// no retries happen here, that is the caller's concern.
type Client struct {
	endpoint        string
	token           string
	ledger          uint32
	platformAccount ID
	feeBps          int64
	client          *http.Client
	log             *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) (*Client, error) {
	platform, err := ParseID(cfg.Ledger.PlatformAccountID)
	if err != nil {
		return nil, fmt.Errorf("parse platform account id: %w", err)
	}
	// Fee panics on a non-positive rate; catch the misconfiguration at
	// startup instead of on the first transfer.
	if cfg.Ledger.TransferFeeBps <= 0 {
		return nil, fmt.Errorf("transfer fee bps must be positive, got %d", cfg.Ledger.TransferFeeBps)
	}
	return &Client{
		endpoint:        strings.TrimRight(cfg.Ledger.Endpoint, "/"),
		token:           cfg.Ledger.Token,
		ledger:          cfg.Ledger.LedgerCode,
		platformAccount: platform,
		feeBps:          cfg.Ledger.TransferFeeBps,
		client:          &http.Client{Timeout: 12 * time.Second},
		log:             log.Named("ledger.client"),
	}, nil
}

// PlatformAccount is the platform's own revenue account. Debit, Fund and
// Transfer refuse it as a user account so revenue can never be mistaken
// for a customer balance.
func (c *Client) PlatformAccount() ID {
	return c.platformAccount
}

type createAccountRequest struct {
	ID     ID     `json:"id"`
	Ledger uint32 `json:"ledger"`
}

func (c *Client) CreateAccount(ctx context.Context, id ID) error {
	return c.do(ctx, "/accounts", createAccountRequest{ID: id, Ledger: c.ledger}, nil)
}

type lookupRequest struct {
	ID ID `json:"id"`
}

func (c *Client) LookupAccount(ctx context.Context, id ID) (*Account, error) {
	var account Account
	if err := c.do(ctx, "/accounts/lookup", lookupRequest{ID: id}, &account); err != nil {
		return nil, err
	}
	// Assert the overdraw invariant on every read; a violation crashes.
	Available(account)
	return &account, nil
}

type lookupManyRequest struct {
	IDs []ID `json:"ids"`
}

type lookupManyResponse struct {
	Accounts []Account `json:"accounts"`
}

func (c *Client) LookupAccounts(ctx context.Context, ids []ID) ([]Account, error) {
	var resp lookupManyResponse
	if err := c.do(ctx, "/accounts/lookup-many", lookupManyRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	for _, account := range resp.Accounts {
		Available(account)
	}
	return resp.Accounts, nil
}

type reserveRequest struct {
	ID             ID     `json:"id"`
	DebitAccountID ID     `json:"debit_account_id"`
	Amount         int64  `json:"amount,string"`
	Timeout        int64  `json:"timeout"`
	Code           Code   `json:"code"`
	Ledger         uint32 `json:"ledger"`
}

func (c *Client) Reserve(ctx context.Context, debitAccount ID, amount int64, timeoutSeconds int64, code Code) (ID, error) {
	mustPositive("reserve", amount)
	id, err := NewRandomID()
	if err != nil {
		return ID{}, err
	}
	req := reserveRequest{
		ID:             id,
		DebitAccountID: debitAccount,
		Amount:         amount,
		Timeout:        timeoutSeconds,
		Code:           code,
		Ledger:         c.ledger,
	}
	if err := c.do(ctx, "/reserve", req, nil); err != nil {
		return ID{}, err
	}
	return id, nil
}

type postRequest struct {
	ID     ID    `json:"id"`
	Amount int64 `json:"amount,string"`
}

func (c *Client) Post(ctx context.Context, pendingID ID, amount int64) error {
	mustPositive("post", amount)
	return c.do(ctx, "/post", postRequest{ID: pendingID, Amount: amount}, nil)
}

type voidRequest struct {
	ID ID `json:"id"`
}

func (c *Client) Void(ctx context.Context, pendingID ID) error {
	return c.do(ctx, "/void", voidRequest{ID: pendingID}, nil)
}

type movementRequest struct {
	AccountID ID     `json:"account_id"`
	Amount    int64  `json:"amount,string"`
	Ledger    uint32 `json:"ledger"`
}

func (c *Client) Debit(ctx context.Context, account ID, amount int64) error {
	mustPositive("debit", amount)
	if err := c.rejectPlatform(account); err != nil {
		return err
	}
	return c.do(ctx, "/debit", movementRequest{AccountID: account, Amount: amount, Ledger: c.ledger}, nil)
}

func (c *Client) Fund(ctx context.Context, account ID, amount int64) error {
	mustPositive("fund", amount)
	if err := c.rejectPlatform(account); err != nil {
		return err
	}
	return c.do(ctx, "/fund", movementRequest{AccountID: account, Amount: amount, Ledger: c.ledger}, nil)
}

type transferRequest struct {
	FromID ID     `json:"from_id"`
	ToID   ID     `json:"to_id"`
	Amount int64  `json:"amount,string"`
	Fee    int64  `json:"fee,string"`
	FeeTo  ID     `json:"fee_to"`
	Ledger uint32 `json:"ledger"`
}

// Transfer debits amount from one user account and credits the net to the
// other, with the platform fee applied as a linked second operation so the
// debit, net credit and fee credit are all-or-nothing.
func (c *Client) Transfer(ctx context.Context, from ID, to ID, amount int64) error {
	mustPositive("transfer", amount)
	if err := c.rejectPlatform(from); err != nil {
		return err
	}
	if err := c.rejectPlatform(to); err != nil {
		return err
	}
	req := transferRequest{
		FromID: from,
		ToID:   to,
		Amount: amount,
		Fee:    Fee(amount, c.feeBps),
		FeeTo:  c.platformAccount,
		Ledger: c.ledger,
	}
	return c.do(ctx, "/transfer", req, nil)
}

func (c *Client) Bootstrap(ctx context.Context) error {
	return c.do(ctx, "/bootstrap", struct{}{}, nil)
}

func (c *Client) rejectPlatform(account ID) error {
	if account == c.platformAccount {
		return ErrPlatformAccount
	}
	return nil
}

func mustPositive(op string, amount int64) {
	if amount <= 0 {
		panic(fmt.Sprintf("ledger %s with non-positive amount %d", op, amount))
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var ledgerErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&ledgerErr); err != nil {
			return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
		}
		return c.mapError(resp.StatusCode, ledgerErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	return nil
}

func (c *Client) mapError(status int, resp errorResponse) error {
	code := strings.TrimSpace(resp.Error.Code)
	switch code {
	case "account_not_found":
		return ErrAccountNotFound
	case "exceeds_credits", "insufficient_balance":
		return ErrInsufficientBalance
	}
	if status == http.StatusNotFound {
		return ErrAccountNotFound
	}
	message := strings.TrimSpace(resp.Error.Message)
	if message == "" {
		message = "ledger request failed"
	}
	return fmt.Errorf("%w: %s", ErrRequestFailed, message)
}
