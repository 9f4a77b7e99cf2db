package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

// wowpayOrderPath is the processor's order creation endpoint.
const wowpayOrderPath = "/api/payment"

// maxResponseBytes bounds how much of a processor response is read.
const maxResponseBytes = 1 << 20

// processorStatusSuccess is the only response status that means the order
// was accepted.
const processorStatusSuccess = "success"

// CreateOrderRequest carries the signed fields of an outbound order. The
// merchant secret is deliberately absent: only its signature travels.
type CreateOrderRequest struct {
	AppID     string
	OrderID   string
	Amount    decimal.Decimal
	Timestamp int64
	Sign      string

	// Optional, unsigned routing hints.
	NotifyURL string
	ReturnURL string
}

// CreateOrderResponse is the processor's reply to an accepted order.
type CreateOrderResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
	URL       string `json:"url"`
	Message   string `json:"message,omitempty"`
}

// WowPayClient talks to the WowPay order API.
type WowPayClient struct {
	*BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewWowPayClient creates a client for the processor at baseURL.
func NewWowPayClient(base *BaseClient, baseURL string, logger *slog.Logger) *WowPayClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WowPayClient{
		BaseClient: base,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// CreateOrder submits one form-encoded order request.
//
// Errors:
//   - ErrCodeUpstreamProcessorUnavailable / ErrCodeUpstreamCircuitOpen: no
//     usable HTTP exchange, or a non-2xx status. Details carry http_status
//     and response_body when a response was received.
//   - ErrCodePaymentRejected: 2xx with a non-success status, an undecodable
//     body, or a success missing paymentId or url. Details carry the
//     decoded response (or the raw body).
func (c *WowPayClient) CreateOrder(ctx context.Context, in CreateOrderRequest) (*CreateOrderResponse, error) {
	form := url.Values{}
	form.Set("appId", in.AppID)
	form.Set("orderId", in.OrderID)
	form.Set("amount", in.Amount.StringFixed(2))
	form.Set("timestamp", strconv.FormatInt(in.Timestamp, 10))
	form.Set("sign", in.Sign)
	if in.NotifyURL != "" {
		form.Set("notifyUrl", in.NotifyURL)
	}
	if in.ReturnURL != "" {
		form.Set("returnUrl", in.ReturnURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+wowpayOrderPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build processor request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamProcessorUnavailable,
			"failed to read processor response",
			err,
			map[string]any{"http_status": resp.StatusCode},
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamProcessorUnavailable,
			fmt.Sprintf("processor returned HTTP %d", resp.StatusCode),
			nil,
			map[string]any{
				"http_status":   resp.StatusCode,
				"response_body": string(body),
			},
		)
	}

	var out CreateOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePaymentRejected,
			"processor response could not be decoded",
			err,
			map[string]any{"response_body": string(body)},
		)
	}

	if out.Status != processorStatusSuccess {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePaymentRejected,
			"processor rejected the order",
			nil,
			map[string]any{
				"status":  out.Status,
				"message": out.Message,
			},
		)
	}
	if out.PaymentID == "" || out.URL == "" {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePaymentRejected,
			"processor accepted the order without a payment id or url",
			nil,
			map[string]any{"response_body": string(body)},
		)
	}

	c.logger.DebugContext(ctx, "processor accepted order",
		"order_id", in.OrderID,
		"payment_id", out.PaymentID,
	)
	return &out, nil
}
