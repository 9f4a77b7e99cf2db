package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paygate/internal/payment"
	"paygate/internal/types"
)

type mockCheckoutService struct {
	gotInvoiceID int64
	gotReturnURL string
	redirect     *payment.RedirectInstruction
	txs          []*types.Transaction
	err          error
}

func (m *mockCheckoutService) StartPayment(_ context.Context, invoiceID int64, returnURL string) (*payment.RedirectInstruction, error) {
	m.gotInvoiceID = invoiceID
	m.gotReturnURL = returnURL
	return m.redirect, m.err
}

func (m *mockCheckoutService) Transactions(_ context.Context, invoiceID int64) ([]*types.Transaction, error) {
	m.gotInvoiceID = invoiceID
	return m.txs, m.err
}

func newCheckoutRouter(svc CheckoutService) http.Handler {
	r := chi.NewRouter()
	NewCheckoutHandler(svc, nil, nil).RegisterRoutes(r)
	return r
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestStartPayment_Success(t *testing.T) {
	svc := &mockCheckoutService{redirect: &payment.RedirectInstruction{
		URL: "https://pay.example/abc123", Method: "GET", OrderID: "INV-42-1-a", PaymentID: "abc123",
	}}

	req := httptest.NewRequest(http.MethodPost, "/invoices/42/payments",
		strings.NewReader(`{"returnUrl":"https://shop.example/done"}`))
	w := httptest.NewRecorder()
	newCheckoutRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotInvoiceID != 42 || svc.gotReturnURL != "https://shop.example/done" {
		t.Errorf("unexpected service call: invoice=%d returnURL=%q", svc.gotInvoiceID, svc.gotReturnURL)
	}

	var resp struct {
		Data payment.RedirectInstruction `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.URL != "https://pay.example/abc123" || resp.Data.Method != "GET" {
		t.Errorf("unexpected redirect: %+v", resp.Data)
	}
}

func TestStartPayment_EmptyBody(t *testing.T) {
	svc := &mockCheckoutService{redirect: &payment.RedirectInstruction{URL: "https://pay.example/x", Method: "GET"}}

	req := httptest.NewRequest(http.MethodPost, "/invoices/42/payments", nil)
	w := httptest.NewRecorder()
	newCheckoutRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotReturnURL != "" {
		t.Errorf("expected empty return URL, got %q", svc.gotReturnURL)
	}
}

func TestStartPayment_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode types.ErrorCode
	}{
		{"non-numeric id", "/invoices/abc/payments", `{}`, types.ErrCodeValidationMalformedBody},
		{"zero id", "/invoices/0/payments", `{}`, types.ErrCodeValidationMalformedBody},
		{"relative return url", "/invoices/42/payments", `{"returnUrl":"/done"}`, types.ErrCodeValidationInvalidURL},
		{"unknown field", "/invoices/42/payments", `{"amount":"1.00"}`, types.ErrCodeValidationMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newCheckoutRouter(svc).ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if code := decodeErrorCode(t, w); code != string(tt.wantCode) {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
			if svc.gotInvoiceID != 0 {
				t.Error("service must not be called")
			}
		})
	}
}

func TestStartPayment_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"paid", types.NewAppError(types.ErrCodeConflictInvoicePaid, "Invoice is already paid.", nil), http.StatusConflict},
		{"rejected", types.NewAppError(types.ErrCodePaymentRejected, "The payment could not be processed.", nil), http.StatusPaymentRequired},
		{"unavailable", types.NewAppError(types.ErrCodeUpstreamProcessorUnavailable, "try again", nil), http.StatusBadGateway},
		{"missing invoice", types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{err: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/invoices/42/payments", strings.NewReader(`{}`))
			w := httptest.NewRecorder()
			newCheckoutRouter(svc).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	svc := &mockCheckoutService{txs: []*types.Transaction{{
		ID: 1, InvoiceID: 42, ExternalTransactionID: "abc123",
		Amount: decimal.RequireFromString("19.99"), Currency: "USD", Status: types.TxStatusPending,
	}}}

	req := httptest.NewRequest(http.MethodGet, "/invoices/42/transactions", nil)
	w := httptest.NewRecorder()
	newCheckoutRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data []types.Transaction `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ExternalTransactionID != "abc123" {
		t.Errorf("unexpected transactions: %+v", resp.Data)
	}
	if svc.gotInvoiceID != 42 {
		t.Errorf("expected invoice 42, got %d", svc.gotInvoiceID)
	}
}
