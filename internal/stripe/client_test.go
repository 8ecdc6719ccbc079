package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopagent/internal/domain/payment"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "sk_test_123",
	})
}

func TestCreateHold_SendsManualCaptureForm(t *testing.T) {
	var form map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "pi_1",
			"amount":   3159,
			"currency": "usd",
			"status":   "requires_capture",
			"metadata": map[string]string{"owner_id": "u1"},
		})
	})

	hold, err := c.CreateHold(context.Background(), payment.HoldRequest{
		CustomerID:   "cus_1",
		InstrumentID: "pm_1",
		Amount:       decimal.RequireFromString("31.59"),
		Currency:     "USD",
		Metadata:     map[string]string{"owner_id": "u1", "cart_fingerprint": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "3159", form["amount"])
	assert.Equal(t, "usd", form["currency"])
	assert.Equal(t, "manual", form["capture_method"])
	assert.Equal(t, "cus_1", form["customer"])
	assert.Equal(t, "pm_1", form["payment_method"])
	assert.Equal(t, "abc", form["metadata[cart_fingerprint]"])

	assert.Equal(t, "pi_1", hold.ID)
	assert.Equal(t, payment.StatusRequiresCapture, hold.Status)
	assert.False(t, hold.RequiresConfirmation)
	assert.Equal(t, "31.59", hold.Amount.StringFixed(2))
	assert.Equal(t, "USD", hold.Currency)
}

func TestCapture_ReturnsChargeReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_1/capture", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_1",
			"amount":        3159,
			"currency":      "usd",
			"status":        "succeeded",
			"latest_charge": "ch_1",
		})
	})

	out, err := c.Capture(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", out.TransactionID)
	assert.Equal(t, "31.59", out.Amount.StringFixed(2))
	assert.Equal(t, "USD", out.Currency)
}

func TestCapture_DeclineBecomesCaptureError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"type":         "card_error",
				"code":         "card_declined",
				"decline_code": "insufficient_funds",
				"message":      "Your card has insufficient funds.",
			},
		})
	})

	_, err := c.Capture(context.Background(), "pi_1")
	var captureErr *payment.CaptureError
	require.True(t, errors.As(err, &captureErr))
	assert.Equal(t, "insufficient_funds", captureErr.Reason)
}

func TestRetrieveHold_UnknownID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "invalid_request_error", "code": "resource_missing"},
		})
	})

	_, err := c.RetrieveHold(context.Background(), "pi_missing")
	require.ErrorIs(t, err, payment.ErrHoldNotFound)
}

func TestDefaultInstrument_NoneStored(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_methods", r.URL.Path)
		require.Equal(t, "cus_1", r.URL.Query().Get("customer"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	_, err := c.DefaultInstrument(context.Background(), "cus_1")
	require.ErrorIs(t, err, payment.ErrNoPaymentMethod)
}

func TestRetrieveHold_RequiresConfirmation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "pi_2",
			"amount":   1000,
			"currency": "usd",
			"status":   "requires_confirmation",
		})
	})

	hold, err := c.RetrieveHold(context.Background(), "pi_2")
	require.NoError(t, err)
	assert.True(t, hold.RequiresConfirmation)
	assert.Equal(t, payment.StatusRequiresCapture, hold.Status)
}
