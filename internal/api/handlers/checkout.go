// Package handlers contains the HTTP handlers for the payment gateway API.
//
// The checkout handlers live under /v1 behind the API key middleware. The
// processor webhook is public and authenticated by its signature.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"paygate/internal/core"
	"paygate/internal/payment"
	"paygate/internal/types"
)

// CheckoutService starts payments and lists their transactions.
type CheckoutService interface {
	StartPayment(ctx context.Context, invoiceID int64, returnURL string) (*payment.RedirectInstruction, error)
	Transactions(ctx context.Context, invoiceID int64) ([]*types.Transaction, error)
}

// StartPaymentRequest is the body of POST /v1/invoices/{invoiceID}/payments.
// The amount is taken from the invoice.
type StartPaymentRequest struct {
	ReturnURL string `json:"returnUrl" validate:"omitempty,abs_url"`
}

// CheckoutHandler serves the invoice payment endpoints.
type CheckoutHandler struct {
	service   CheckoutService
	validator *core.Validator
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc CheckoutService, v *core.Validator, l *slog.Logger) *CheckoutHandler {
	if l == nil {
		l = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(l)
	}
	return &CheckoutHandler{service: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the checkout endpoints. The caller mounts them under
// /v1.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/invoices/{invoiceID}/payments", h.StartPayment)
	r.Get("/invoices/{invoiceID}/transactions", h.ListTransactions)
}

// StartPayment handles POST /v1/invoices/{invoiceID}/payments and returns
// the redirect the payer must follow.
func (h *CheckoutHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := invoiceIDParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req StartPaymentRequest
	if r.ContentLength != 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	redirect, err := h.service.StartPayment(r.Context(), invoiceID, req.ReturnURL)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to start payment",
			"invoice_id", invoiceID,
			"code", string(types.CodeOf(err)),
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: redirect})
}

// ListTransactions handles GET /v1/invoices/{invoiceID}/transactions.
func (h *CheckoutHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := invoiceIDParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	txs, err := h.service.Transactions(r.Context(), invoiceID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: txs})
}

func invoiceIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "invoiceID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationMalformedBody,
			"invoice id must be a positive integer", nil, map[string]any{"invoice_id": raw})
	}
	return id, nil
}
