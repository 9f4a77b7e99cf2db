package webhook

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"paygate/internal/core"
	"paygate/internal/gatewaylog"
	"paygate/internal/types"
)

// Header names carrying the signature and timestamp. The X-WowPay variants
// are accepted when the plain ones are absent.
const (
	HeaderSignature       = "Signature"
	HeaderTimestamp       = "Timestamp"
	HeaderLegacySignature = "X-WowPay-Signature"
	HeaderLegacyTimestamp = "X-WowPay-Timestamp"
)

// Outcome classifies how a notification was handled.
type Outcome string

const (
	OutcomeCredited     Outcome = "credited"
	OutcomeMarkedUnpaid Outcome = "marked_unpaid"
	OutcomePending      Outcome = "pending"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeConflict     Outcome = "conflict"
)

// Metric outcome labels for rejected notifications.
const (
	metricRejected = "rejected"
	metricInvalid  = "invalid"
	metricNotFound = "not_found"
	metricError    = "error"
)

// TransactionStore reads and transitions gateway transactions.
type TransactionStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*types.Transaction, error)
	CompareAndSetStatus(ctx context.Context, externalID string, from, to types.TransactionStatus) (bool, error)
}

// InvoiceService is the billing collaborator.
type InvoiceService interface {
	GetInvoice(ctx context.Context, id int64) (*types.Invoice, error)
	AddPayment(ctx context.Context, p types.InvoicePayment) error
	MarkUnpaid(ctx context.Context, invoiceID int64, note string) error
}

// StructValidator validates decoded payloads.
type StructValidator interface {
	ValidateStruct(s any) error
}

// Metrics counts handled notifications by outcome.
type Metrics interface {
	RecordWebhook(ctx context.Context, outcome string)
}

// creditAmount holds the rule a success report's amount must satisfy.
type creditAmount struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,decimal_positive"`
}

// Result describes an acknowledged notification.
type Result struct {
	Outcome   Outcome
	PaymentID string
	InvoiceID int64
	Status    types.TransactionStatus
}

// Message is the short acknowledgement text returned to the processor.
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomeCredited:
		return "OK: payment recorded"
	case OutcomeMarkedUnpaid:
		return "OK: payment failure recorded"
	case OutcomePending:
		return "OK: pending"
	case OutcomeDuplicate:
		return "OK: already processed"
	default:
		return "OK"
	}
}

// Processor handles processor notifications.
type Processor struct {
	verifier  *Verifier
	store     TransactionStore
	invoices  InvoiceService
	secret    types.SecretString
	gateway   string
	validator StructValidator
	recorder  gatewaylog.Recorder
	metrics   Metrics
	logger    *slog.Logger
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithValidator overrides the payload validator.
func WithValidator(v StructValidator) ProcessorOption {
	return func(p *Processor) { p.validator = v }
}

// WithRecorder sets the gateway activity recorder.
func WithRecorder(r gatewaylog.Recorder) ProcessorOption {
	return func(p *Processor) { p.recorder = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor creates a Processor. gateway is the name passed to the
// invoice collaborator with each credited payment.
func NewProcessor(verifier *Verifier, store TransactionStore, invoices InvoiceService, secret types.SecretString, gateway string, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		verifier: verifier,
		store:    store,
		invoices: invoices,
		secret:   secret,
		gateway:  gateway,
		recorder: gatewaylog.Nop{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.validator == nil {
		p.validator = core.NewValidator(logger)
	}
	return p
}

// Handle authenticates and applies one notification. A nil error means the
// notification must be acknowledged with 200. Returned errors are AppErrors
// whose code determines the response status.
func (p *Processor) Handle(ctx context.Context, header http.Header, rawBody []byte) (*Result, error) {
	logger := p.logger.With("request_id", types.GetRequestID(ctx))

	payload, err := p.verifier.Verify(
		headerValue(header, HeaderSignature, HeaderLegacySignature),
		headerValue(header, HeaderTimestamp, HeaderLegacyTimestamp),
		rawBody,
		p.secret,
	)
	if err != nil {
		logger.WarnContext(ctx, "webhook verification failed, possible forged notification",
			"code", string(types.CodeOf(err)),
			"error", err,
			"body_bytes", len(rawBody),
		)
		p.record(ctx, types.GatewayResultError, map[string]any{
			"reason": string(types.CodeOf(err)),
		})
		p.count(ctx, metricRejected)
		return nil, err
	}

	logger = logger.With("payment_id", payload.PaymentID, "order_id", payload.OrderID)

	if err := p.validator.ValidateStruct(payload); err != nil {
		logger.InfoContext(ctx, "webhook payload invalid", "error", err)
		p.count(ctx, metricInvalid)
		return nil, err
	}

	status, ok := types.ParseTransactionStatus(payload.Status)
	if !ok {
		logger.InfoContext(ctx, "webhook status unknown", "status", payload.Status)
		p.count(ctx, metricInvalid)
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidStatus,
			"Unknown status: "+payload.Status, nil, map[string]any{"status": payload.Status})
	}

	// Only a credit uses the amount; failure and pending reports may carry zero.
	if status == types.TxStatusSuccess {
		if err := p.validator.ValidateStruct(creditAmount{Amount: payload.Amount}); err != nil {
			logger.InfoContext(ctx, "webhook credit amount invalid", "error", err)
			p.count(ctx, metricInvalid)
			return nil, err
		}
	}

	tx, err := p.store.GetByExternalID(ctx, payload.PaymentID)
	if err != nil {
		if types.HasCode(err, types.ErrCodeNotFoundTransaction) {
			logger.WarnContext(ctx, "webhook for unknown transaction")
			p.count(ctx, metricNotFound)
		} else {
			logger.ErrorContext(ctx, "failed to load transaction", "error", err)
			p.count(ctx, metricError)
		}
		return nil, err
	}
	logger = logger.With("invoice_id", tx.InvoiceID)

	inv, err := p.invoices.GetInvoice(ctx, tx.InvoiceID)
	if err != nil {
		if types.HasCode(err, types.ErrCodeNotFoundInvoice) {
			logger.ErrorContext(ctx, "transaction references missing invoice")
			p.count(ctx, metricNotFound)
		} else {
			logger.ErrorContext(ctx, "failed to load invoice", "error", err)
			p.count(ctx, metricError)
		}
		return nil, err
	}

	res := &Result{PaymentID: payload.PaymentID, InvoiceID: inv.ID}

	if status == types.TxStatusPending {
		logger.InfoContext(ctx, "webhook reports pending payment")
		res.Outcome, res.Status = OutcomePending, tx.Status
		p.record(ctx, types.GatewayResultPending, payloadData(payload))
		p.count(ctx, string(res.Outcome))
		return res, nil
	}

	if err := p.transition(ctx, logger, payload, tx, inv, status, res); err != nil {
		p.count(ctx, metricError)
		return nil, err
	}
	p.count(ctx, string(res.Outcome))
	return res, nil
}

// transition moves the transaction from pending to target and, only when this
// call won the swap, applies the invoice side effect. Terminal statuses are
// never rewritten, so a failed side effect is left for reconciliation.
func (p *Processor) transition(ctx context.Context, logger *slog.Logger, payload *Payload, tx *types.Transaction, inv *types.Invoice, target types.TransactionStatus, res *Result) error {
	won, err := p.store.CompareAndSetStatus(ctx, payload.PaymentID, types.TxStatusPending, target)
	if err != nil {
		logger.ErrorContext(ctx, "failed to transition transaction", "target", string(target), "error", err)
		return err
	}

	if !won {
		current, err := p.store.GetByExternalID(ctx, payload.PaymentID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to re-read transaction after lost swap", "error", err)
			return err
		}
		res.Status = current.Status
		if current.Status == target {
			logger.InfoContext(ctx, "duplicate webhook delivery", "status", string(current.Status))
			res.Outcome = OutcomeDuplicate
			return nil
		}
		logger.WarnContext(ctx, "conflicting webhook for finalized transaction",
			"current_status", string(current.Status),
			"reported_status", string(target),
		)
		p.record(ctx, types.GatewayResultConflict, payloadData(payload))
		res.Outcome = OutcomeConflict
		return nil
	}

	var sideEffect error
	switch target {
	case types.TxStatusSuccess:
		if !payload.Amount.Equal(tx.Amount) {
			logger.WarnContext(ctx, "reported amount differs from order amount",
				"reported_amount", payload.Amount.StringFixed(2),
				"order_amount", tx.Amount.StringFixed(2),
			)
		}
		sideEffect = p.invoices.AddPayment(ctx, types.InvoicePayment{
			InvoiceID:     inv.ID,
			TransactionID: payload.PaymentID,
			Amount:        *payload.Amount,
			Gateway:       p.gateway,
		})
	case types.TxStatusFailed:
		sideEffect = p.invoices.MarkUnpaid(ctx, inv.ID, "Payment failed: "+payload.Message)
	}

	if sideEffect != nil {
		logger.ErrorContext(ctx, "invoice update failed after transition, manual reconciliation required",
			"status", string(target),
			"error", sideEffect,
		)
		data := payloadData(payload)
		data["reconcile"] = true
		data["invoice_id"] = inv.ID
		p.record(ctx, types.GatewayResultError, data)
		return types.NewAppError(types.ErrCodeInternalInvoiceSideEffect, "Invoice update failed", sideEffect)
	}

	res.Status = target
	if target == types.TxStatusSuccess {
		res.Outcome = OutcomeCredited
		logger.InfoContext(ctx, "payment credited to invoice", "amount", payload.Amount.StringFixed(2))
		p.record(ctx, types.GatewayResultSuccessful, payloadData(payload))
	} else {
		res.Outcome = OutcomeMarkedUnpaid
		logger.InfoContext(ctx, "payment failed, invoice left unpaid", "reason", payload.Message)
		p.record(ctx, types.GatewayResultFailed, payloadData(payload))
	}
	return nil
}

func (p *Processor) record(ctx context.Context, result types.GatewayResult, data map[string]any) {
	err := p.recorder.Record(ctx, types.GatewayLogEntry{
		Gateway: p.gateway,
		Action:  types.GatewayActionWebhook,
		Result:  result,
		Data:    data,
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to record gateway activity", "error", err)
	}
}

func (p *Processor) count(ctx context.Context, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordWebhook(ctx, outcome)
	}
}

func payloadData(p *Payload) map[string]any {
	data := map[string]any{
		"paymentId": p.PaymentID,
		"orderId":   p.OrderID,
		"status":    p.Status,
	}
	if p.Amount != nil {
		data["amount"] = p.Amount.StringFixed(2)
	}
	if p.Message != "" {
		data["message"] = p.Message
	}
	return data
}

func headerValue(h http.Header, primary, fallback string) string {
	if v := h.Get(primary); v != "" {
		return v
	}
	return h.Get(fallback)
}
