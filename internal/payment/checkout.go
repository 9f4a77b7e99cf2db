package payment

import (
	"context"
	"log/slog"

	"paygate/internal/types"
)

// InvoiceReader loads invoices from the billing collaborator.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, id int64) (*types.Invoice, error)
}

// TransactionLister lists the gateway transactions recorded for an invoice.
type TransactionLister interface {
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*types.Transaction, error)
}

// PaymentCreator is satisfied by *Initiator.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput, creds Credentials) (*RedirectInstruction, error)
}

// Checkout starts payments for invoices. The amount and currency always come
// from the invoice, never from the caller.
type Checkout struct {
	invoices     InvoiceReader
	transactions TransactionLister
	payments     PaymentCreator
	creds        Credentials
	callbackURL  string
	logger       *slog.Logger
}

// NewCheckout creates a Checkout. callbackURL is the absolute webhook URL
// sent to the processor with every order.
func NewCheckout(invoices InvoiceReader, transactions TransactionLister, payments PaymentCreator, creds Credentials, callbackURL string, logger *slog.Logger) *Checkout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkout{
		invoices:     invoices,
		transactions: transactions,
		payments:     payments,
		creds:        creds,
		callbackURL:  callbackURL,
		logger:       logger,
	}
}

// StartPayment creates a processor order for the full invoice total.
func (c *Checkout) StartPayment(ctx context.Context, invoiceID int64, returnURL string) (*RedirectInstruction, error) {
	inv, err := c.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case types.InvoiceStatusPaid:
		return nil, types.NewAppErrorWithDetails(types.ErrCodeConflictInvoicePaid, "Invoice is already paid.", nil,
			map[string]any{"invoice_id": invoiceID})
	case types.InvoiceStatusCancelled:
		return nil, types.NewAppErrorWithDetails(types.ErrCodeConflictTerminalState, "Invoice is cancelled.", nil,
			map[string]any{"invoice_id": invoiceID})
	}

	c.logger.InfoContext(ctx, "starting invoice payment",
		"invoice_id", invoiceID,
		"request_id", types.GetRequestID(ctx),
	)

	return c.payments.CreatePayment(ctx, CreatePaymentInput{
		InvoiceID:   inv.ID,
		Amount:      inv.Total,
		Currency:    inv.Currency,
		ReturnURL:   returnURL,
		CallbackURL: c.callbackURL,
	}, c.creds)
}

// Transactions returns the invoice's transactions, newest first. The invoice
// must exist.
func (c *Checkout) Transactions(ctx context.Context, invoiceID int64) ([]*types.Transaction, error) {
	if _, err := c.invoices.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return c.transactions.ListByInvoice(ctx, invoiceID)
}
