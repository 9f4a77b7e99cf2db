// Package payment starts redirect payments with the remote processor. It
// signs and sends the order, and records a pending transaction only once the
// processor has accepted it.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/external"
	"paygate/internal/gatewaylog"
	"paygate/internal/types"
)

// Order outcome labels for metrics.
const (
	OrderResultAccepted    = "accepted"
	OrderResultRejected    = "rejected"
	OrderResultUnavailable = "unavailable"
	OrderResultDuplicate   = "duplicate"
	OrderResultStoreError  = "store_error"
)

// ProcessorClient submits signed orders to the processor.
type ProcessorClient interface {
	CreateOrder(ctx context.Context, in external.CreateOrderRequest) (*external.CreateOrderResponse, error)
}

// TransactionStore persists accepted orders.
type TransactionStore interface {
	Create(ctx context.Context, tx *types.Transaction) error
}

// OrderMetrics counts order attempts by outcome.
type OrderMetrics interface {
	RecordOrder(ctx context.Context, result string)
}

// Credentials identify the merchant to the processor. AppSecret is used only
// as signing key material.
type Credentials struct {
	AppID     string
	AppSecret types.SecretString
}

// CreatePaymentInput describes one payment attempt.
type CreatePaymentInput struct {
	InvoiceID   int64
	Amount      decimal.Decimal
	Currency    string
	ReturnURL   string
	CallbackURL string
}

// RedirectInstruction tells the caller where to send the payer.
type RedirectInstruction struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// Initiator creates orders with the processor.
type Initiator struct {
	processor ProcessorClient
	store     TransactionStore
	recorder  gatewaylog.Recorder
	metrics   OrderMetrics
	gateway   string
	logger    *slog.Logger

	now   func() time.Time
	nonce func() string
}

// InitiatorOption customizes an Initiator.
type InitiatorOption func(*Initiator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) InitiatorOption {
	return func(i *Initiator) { i.now = now }
}

// WithNonce overrides the order reference nonce source.
func WithNonce(nonce func() string) InitiatorOption {
	return func(i *Initiator) { i.nonce = nonce }
}

// WithRecorder sets the gateway activity recorder.
func WithRecorder(r gatewaylog.Recorder) InitiatorOption {
	return func(i *Initiator) { i.recorder = r }
}

// WithOrderMetrics sets the metrics sink.
func WithOrderMetrics(m OrderMetrics) InitiatorOption {
	return func(i *Initiator) { i.metrics = m }
}

// NewInitiator creates an Initiator. gateway is the name recorded in the
// activity log and on invoice payments.
func NewInitiator(processor ProcessorClient, store TransactionStore, gateway string, logger *slog.Logger, opts ...InitiatorOption) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Initiator{
		processor: processor,
		store:     store,
		recorder:  gatewaylog.Nop{},
		gateway:   gateway,
		logger:    logger,
		now:       time.Now,
		nonce:     NewNonce,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CreatePayment signs and submits a new order, then records it as a pending
// transaction. Processor failures are returned with a generic message; the
// diagnostic (HTTP status, raw body) goes to the log and the gateway log.
// The processor is called exactly once per invocation.
func (i *Initiator) CreatePayment(ctx context.Context, in CreatePaymentInput, creds Credentials) (*RedirectInstruction, error) {
	if err := validateInput(in, creds); err != nil {
		return nil, err
	}

	now := i.now()
	orderID := OrderReference(in.InvoiceID, now, i.nonce())
	ts := now.Unix()

	req := external.CreateOrderRequest{
		AppID:     creds.AppID,
		OrderID:   orderID,
		Amount:    in.Amount,
		Timestamp: ts,
		Sign:      SignOrder(creds.AppSecret.Unmask(), creds.AppID, orderID, in.Amount, ts),
		NotifyURL: in.CallbackURL,
		ReturnURL: in.ReturnURL,
	}

	logger := i.logger.With(
		"invoice_id", in.InvoiceID,
		"order_id", orderID,
		"request_id", types.GetRequestID(ctx),
	)

	resp, err := i.processor.CreateOrder(ctx, req)
	if err != nil {
		return nil, i.processorFailure(ctx, logger, in, orderID, err)
	}

	tx := &types.Transaction{
		InvoiceID:             in.InvoiceID,
		ExternalTransactionID: resp.PaymentID,
		OrderID:               orderID,
		Amount:                in.Amount,
		Currency:              in.Currency,
		Status:                types.TxStatusPending,
	}
	if err := i.store.Create(ctx, tx); err != nil {
		result := OrderResultStoreError
		logResult := types.GatewayResultError
		if types.HasCode(err, types.ErrCodeConflictDuplicateTransaction) {
			result = OrderResultDuplicate
			logResult = types.GatewayResultConflict
			logger.WarnContext(ctx, "processor returned an already recorded payment id",
				"payment_id", resp.PaymentID,
			)
		} else {
			logger.ErrorContext(ctx, "failed to record accepted order",
				"payment_id", resp.PaymentID,
				"error", err,
			)
		}
		i.record(ctx, logResult, map[string]any{
			"invoice_id": in.InvoiceID,
			"orderId":    orderID,
			"paymentId":  resp.PaymentID,
			"error":      string(types.CodeOf(err)),
		})
		i.count(ctx, result)
		return nil, err
	}

	logger.InfoContext(ctx, "payment order created",
		"payment_id", resp.PaymentID,
		"amount", in.Amount.StringFixed(2),
		"currency", in.Currency,
	)
	i.record(ctx, types.GatewayResultPending, map[string]any{
		"invoice_id": in.InvoiceID,
		"orderId":    orderID,
		"paymentId":  resp.PaymentID,
		"amount":     in.Amount.StringFixed(2),
		"currency":   in.Currency,
	})
	i.count(ctx, OrderResultAccepted)

	return &RedirectInstruction{
		URL:       resp.URL,
		Method:    http.MethodGet,
		OrderID:   orderID,
		PaymentID: resp.PaymentID,
	}, nil
}

// processorFailure logs the full diagnostic and returns the payer-facing
// error, which carries no processor details.
func (i *Initiator) processorFailure(ctx context.Context, logger *slog.Logger, in CreatePaymentInput, orderID string, err error) error {
	code := types.CodeOf(err)
	details := map[string]any{}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			details[k] = v
		}
	}
	details["invoice_id"] = in.InvoiceID
	details["orderId"] = orderID
	details["error"] = err.Error()

	switch code {
	case types.ErrCodePaymentRejected:
		logger.WarnContext(ctx, "processor rejected order", "error", err, "response", details)
		i.record(ctx, types.GatewayResultError, details)
		i.count(ctx, OrderResultRejected)
		return types.NewAppError(types.ErrCodePaymentRejected, "The payment could not be processed.", err)

	case types.ErrCodeUpstreamCircuitOpen:
		logger.ErrorContext(ctx, "processor circuit open", "error", err)
		i.record(ctx, types.GatewayResultError, details)
		i.count(ctx, OrderResultUnavailable)
		return types.NewAppError(types.ErrCodeUpstreamCircuitOpen, "The payment service is temporarily unavailable. Please try again.", err)

	default:
		logger.ErrorContext(ctx, "processor request failed", "error", err, "response", details)
		i.record(ctx, types.GatewayResultError, details)
		i.count(ctx, OrderResultUnavailable)
		return types.NewAppError(types.ErrCodeUpstreamProcessorUnavailable, "The payment service is temporarily unavailable. Please try again.", err)
	}
}

func (i *Initiator) record(ctx context.Context, result types.GatewayResult, data map[string]any) {
	err := i.recorder.Record(ctx, types.GatewayLogEntry{
		Gateway: i.gateway,
		Action:  types.GatewayActionCreateOrder,
		Result:  result,
		Data:    data,
	})
	if err != nil {
		i.logger.WarnContext(ctx, "failed to record gateway activity", "error", err)
	}
}

func (i *Initiator) count(ctx context.Context, result string) {
	if i.metrics != nil {
		i.metrics.RecordOrder(ctx, result)
	}
}

func validateInput(in CreatePaymentInput, creds Credentials) error {
	if in.InvoiceID <= 0 {
		return types.NewAppError(types.ErrCodeValidationMalformedBody, "invoice id must be positive", nil)
	}
	if !in.Amount.IsPositive() {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidAmount, "amount must be positive", nil,
			map[string]any{"amount": in.Amount.String()})
	}
	if in.Currency == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "Missing required field: currency", nil)
	}
	if creds.AppID == "" || creds.AppSecret.IsZero() {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "processor credentials are not configured", nil)
	}
	return nil
}
