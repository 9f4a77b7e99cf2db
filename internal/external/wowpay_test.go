package external

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/types"
)

func newWowPayTestClient(t *testing.T, handler http.HandlerFunc) *WowPayClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := NewBaseClient(&http.Client{Timeout: 2 * time.Second}, "wowpay-test", "PayGate-Test/1.0")
	return NewWowPayClient(base, server.URL+"/", nil)
}

func sampleOrder() CreateOrderRequest {
	return CreateOrderRequest{
		AppID:     "app_1",
		OrderID:   "INV-42-1700000000000-a1b2c3d4e5f6",
		Amount:    decimal.RequireFromString("19.9"),
		Timestamp: 1700000000,
		Sign:      "deadbeef",
	}
}

func TestWowPayClient_CreateOrder_Success(t *testing.T) {
	var form url.Values
	var path, contentType string
	client := newWowPayTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","paymentId":"abc123","url":"https://pay.example/abc123"}`))
	})

	resp, err := client.CreateOrder(context.Background(), sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "abc123", resp.PaymentID)
	assert.Equal(t, "https://pay.example/abc123", resp.URL)
	assert.Equal(t, "/api/payment", path)
	assert.Contains(t, contentType, "application/x-www-form-urlencoded")
	assert.Equal(t, "app_1", form.Get("appId"))
	assert.Equal(t, "19.90", form.Get("amount"))
	assert.Equal(t, "1700000000", form.Get("timestamp"))
	assert.Equal(t, "deadbeef", form.Get("sign"))
	assert.False(t, form.Has("notifyUrl"))
}

func TestWowPayClient_CreateOrder_Non2xxIsTransportError(t *testing.T) {
	client := newWowPayTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.CreateOrder(context.Background(), sampleOrder())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamProcessorUnavailable, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Details["http_status"])
	assert.Equal(t, "upstream down", appErr.Details["response_body"])
}

func TestWowPayClient_CreateOrder_BusinessFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "rejected", body: `{"status":"error","message":"invalid merchant"}`},
		{name: "undecodable", body: `<html>oops</html>`},
		{name: "missing payment id", body: `{"status":"success","url":"https://pay.example/x"}`},
		{name: "missing url", body: `{"status":"success","paymentId":"abc123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newWowPayTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.CreateOrder(context.Background(), sampleOrder())
			assert.Nil(t, resp)
			assert.True(t, types.HasCode(err, types.ErrCodePaymentRejected), "got %v", err)
		})
	}
}

func TestWowPayClient_CreateOrder_SendsRoutingHints(t *testing.T) {
	var form url.Values
	client := newWowPayTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"status":"success","paymentId":"p","url":"https://pay.example/p"}`))
	})

	in := sampleOrder()
	in.NotifyURL = "https://api.example.com/webhooks/wowpay"
	in.ReturnURL = "https://shop.example.com/invoices/42"
	_, err := client.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.NotifyURL, form.Get("notifyUrl"))
	assert.Equal(t, in.ReturnURL, form.Get("returnUrl"))
}
