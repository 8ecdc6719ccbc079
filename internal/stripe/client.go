// Package stripe implements the payment gateway port against a
// Stripe-shaped manual-capture payment-intents REST API.
package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopagent/internal/domain/payment"
)

const defaultBaseURL = "https://api.stripe.com"

var _ payment.Gateway = (*Client)(nil)

// ClientConfig configures the gateway client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client talks to the payment provider's REST API with form-encoded
// requests, as the provider expects.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. A nil HTTPClient gets a 30 second timeout.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Wire types.

type apiError struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

type customerResponse struct {
	ID string `json:"id"`
}

type paymentMethodList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type intentResponse struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
	LatestCharge string            `json:"latest_charge"`
}

// CreateCustomer registers a gateway customer keyed to the identity.
func (c *Client) CreateCustomer(ctx context.Context, ownerID string) (string, error) {
	form := url.Values{}
	form.Set("metadata[owner_id]", ownerID)

	var resp customerResponse
	if err := c.post(ctx, "/v1/customers", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// DefaultInstrument returns the customer's first stored card, which the
// provider treats as the default.
func (c *Client) DefaultInstrument(ctx context.Context, customerID string) (string, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("type", "card")
	q.Set("limit", "1")

	var resp paymentMethodList
	if err := c.get(ctx, "/v1/payment_methods?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", payment.ErrNoPaymentMethod
	}
	return resp.Data[0].ID, nil
}

// CreateHold creates a manual-capture payment intent: funds are reserved
// but not transferred until Capture.
func (c *Client) CreateHold(ctx context.Context, req payment.HoldRequest) (*payment.Hold, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toMinorUnits(req.Amount), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("customer", req.CustomerID)
	form.Set("payment_method", req.InstrumentID)
	form.Set("capture_method", "manual")
	form.Set("confirm", "true")
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var resp intentResponse
	if err := c.post(ctx, "/v1/payment_intents", form, &resp); err != nil {
		return nil, err
	}
	return holdFromIntent(&resp), nil
}

// ConfirmIfRequired confirms an intent that still requires it.
func (c *Client) ConfirmIfRequired(ctx context.Context, holdID string) error {
	var resp intentResponse
	return c.post(ctx, "/v1/payment_intents/"+holdID+"/confirm", url.Values{}, &resp)
}

// Capture transfers the full authorized amount.
func (c *Client) Capture(ctx context.Context, holdID string) (*payment.CaptureOutcome, error) {
	var resp intentResponse
	if err := c.post(ctx, "/v1/payment_intents/"+holdID+"/capture", url.Values{}, &resp); err != nil {
		return nil, err
	}
	txn := resp.LatestCharge
	if txn == "" {
		txn = resp.ID
	}
	return &payment.CaptureOutcome{
		TransactionID: txn,
		Amount:        fromMinorUnits(resp.Amount),
		Currency:      strings.ToUpper(resp.Currency),
	}, nil
}

// RetrieveHold fetches an intent by ID.
func (c *Client) RetrieveHold(ctx context.Context, holdID string) (*payment.Hold, error) {
	var resp intentResponse
	if err := c.get(ctx, "/v1/payment_intents/"+holdID, &resp); err != nil {
		return nil, err
	}
	return holdFromIntent(&resp), nil
}

func holdFromIntent(in *intentResponse) *payment.Hold {
	return &payment.Hold{
		ID:                   in.ID,
		Amount:               fromMinorUnits(in.Amount),
		Currency:             strings.ToUpper(in.Currency),
		Status:               holdStatus(in.Status),
		Metadata:             in.Metadata,
		RequiresConfirmation: in.Status == "requires_confirmation",
	}
}

func holdStatus(s string) payment.HoldStatus {
	switch s {
	case "succeeded":
		return payment.StatusCaptured
	case "canceled":
		return payment.StatusCanceled
	default:
		return payment.StatusRequiresCapture
	}
}

// toMinorUnits converts a decimal amount to the provider's integer minor
// units (cents).
func toMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		return mapAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// mapAPIError converts provider error responses to protocol errors:
// missing resources to ErrHoldNotFound, card declines to CaptureError,
// everything else to a wrapped transport error.
func mapAPIError(status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	if status == http.StatusNotFound || ae.Error.Code == "resource_missing" {
		return payment.ErrHoldNotFound
	}
	if ae.Error.Type == "card_error" {
		reason := ae.Error.DeclineCode
		if reason == "" {
			reason = ae.Error.Code
		}
		if reason == "" {
			reason = ae.Error.Message
		}
		return &payment.CaptureError{Reason: reason}
	}
	if ae.Error.Message != "" {
		return errors.Errorf("gateway: %s (status %d)", ae.Error.Message, status)
	}
	return errors.Errorf("gateway: unexpected status %d", status)
}
