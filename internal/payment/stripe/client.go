// Package stripe implements the payment processor against the Stripe HTTP
// API: off-session charges for auto-reload and connected-account transfers
// for payouts.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/principalgrid/billing/internal/config"
	paymentdomain "github.com/principalgrid/billing/internal/payment/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.stripe.com"

type paymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type transfer struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.SecretKey),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
		log:     log.Named("payment.stripe"),
	}
}

func (c *Client) ChargeOffSession(ctx context.Context, customerID string, cents int64, accountID string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", paymentdomain.ErrNoPaymentMethod
	}
	if cents <= 0 {
		panic(fmt.Sprintf("off-session charge with non-positive amount %d", cents))
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(cents, 10))
	values.Set("currency", "usd")
	values.Set("customer", customerID)
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	values.Set("metadata[account_id]", accountID)

	body, err := c.doRequest(ctx, "/v1/payment_intents", values, "")
	if err != nil {
		return "", err
	}

	var intent paymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return "", err
	}
	if intent.ID == "" || intent.Status != "succeeded" {
		return "", paymentdomain.ErrChargeDeclined
	}
	return intent.ID, nil
}

func (c *Client) TransferToConnected(ctx context.Context, destinationID string, cents int64, idempotencyKey string) (string, error) {
	if strings.TrimSpace(destinationID) == "" {
		return "", paymentdomain.ErrTransferFailed
	}
	if cents <= 0 {
		panic(fmt.Sprintf("connected transfer with non-positive amount %d", cents))
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(cents, 10))
	values.Set("currency", "usd")
	values.Set("destination", destinationID)

	body, err := c.doRequest(ctx, "/v1/transfers", values, idempotencyKey)
	if err != nil {
		return "", err
	}

	var tr transfer
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", err
	}
	if tr.ID == "" {
		return "", paymentdomain.ErrTransferFailed
	}
	return tr.ID, nil
}

func (c *Client) doRequest(ctx context.Context, path string, values url.Values, idempotencyKey string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf []byte
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeError
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, errors.New("stripe_request_failed")
		}
		return nil, c.mapError(stripeErr)
	}

	buf, err = readAll(resp)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Client) mapError(stripeErr stripeError) error {
	code := strings.TrimSpace(stripeErr.Error.Code)
	switch code {
	case "card_declined", "expired_card", "authentication_required", "insufficient_funds":
		return fmt.Errorf("%w: %s", paymentdomain.ErrChargeDeclined, code)
	case "missing_payment_method", "resource_missing":
		return paymentdomain.ErrNoPaymentMethod
	}
	message := strings.TrimSpace(stripeErr.Error.Message)
	if message == "" {
		message = "stripe_request_failed"
	}
	return errors.New(message)
}

func readAll(resp *http.Response) ([]byte, error) {
	var out json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
