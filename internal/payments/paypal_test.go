package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayPalServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*PayPalClient, *int) {
	t.Helper()
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		_ = json.NewEncoder(w).Encode(paypalTokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewPayPalClient("client", "secret", srv.URL), &tokenCalls
}

func TestPayPalCreatePayment(t *testing.T) {
	var got paypalOrderRequest
	c, tokenCalls := newPayPalServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(paypalOrderResponse{
			ID:     "ORDER-1",
			Status: "CREATED",
			Links: []paypalLink{
				{Rel: "self", Href: "https://paypal/self"},
				{Rel: "approve", Href: "https://paypal/approve?token=ORDER-1"},
			},
		})
	})

	session, err := c.CreatePayment(context.Background(), PaymentRequest{
		Amount:      decimal.RequireFromString("50"),
		Currency:    "USD",
		Description: "Consultation with Dr. Asha Rao",
		SKU:         "APT202506011234",
		ReturnURL:   "https://app/return",
		CancelURL:   "https://app/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", session.ID)
	assert.Equal(t, "https://paypal/approve?token=ORDER-1", session.ApprovalURL)
	assert.Equal(t, "50.00", got.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "APT202506011234", got.PurchaseUnits[0].ReferenceID)

	// the token is cached between calls
	_, err = c.CreatePayment(context.Background(), PaymentRequest{Amount: decimal.NewFromInt(1), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, 1, *tokenCalls)
}

func TestPayPalCapturePayment(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		c, _ := newPayPalServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/checkout/orders/ORDER-1/capture", r.URL.Path)
			_ = json.NewEncoder(w).Encode(paypalOrderResponse{ID: "ORDER-1", Status: "COMPLETED"})
		})
		capture, err := c.CapturePayment(context.Background(), "ORDER-1")
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", capture.Status)
	})

	t.Run("declined", func(t *testing.T) {
		c, _ := newPayPalServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
		})
		_, err := c.CapturePayment(context.Background(), "ORDER-1")
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("not completed", func(t *testing.T) {
		c, _ := newPayPalServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(paypalOrderResponse{ID: "ORDER-1", Status: "PAYER_ACTION_REQUIRED"})
		})
		_, err := c.CapturePayment(context.Background(), "ORDER-1")
		assert.ErrorIs(t, err, ErrGateway)
	})
}
