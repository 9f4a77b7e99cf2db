package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one payment attempt recorded against an invoice. A row is
// created only after the processor has accepted an order, and its Status is
// mutated at most once, by the first verified terminal notification.
type Transaction struct {
	ID                    int64             `json:"id" db:"id"`
	InvoiceID             int64             `json:"invoice_id" db:"invoice_id"`
	ExternalTransactionID string            `json:"external_transaction_id" db:"external_transaction_id"`
	OrderID               string            `json:"order_id" db:"order_id"`
	Amount                decimal.Decimal   `json:"amount" db:"amount"`
	Currency              string            `json:"currency" db:"currency"`
	Status                TransactionStatus `json:"status" db:"status"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at" db:"updated_at"`
}

// Invoice is the billing system's view of an amount owed. This service
// credits invoices or marks them unpaid but does not own them.
type Invoice struct {
	ID       int64           `json:"id" db:"id"`
	Status   InvoiceStatus   `json:"status" db:"status"`
	Total    decimal.Decimal `json:"total" db:"total"`
	Currency string          `json:"currency" db:"currency"`
	Notes    string          `json:"notes,omitempty" db:"notes"`
}

// InvoicePayment is a single credit applied to an invoice.
type InvoicePayment struct {
	InvoiceID     int64
	TransactionID string
	Amount        decimal.Decimal
	Gateway       string
}

// GatewayLogEntry is one record in the host's gateway activity log.
// Data must never carry credentials.
type GatewayLogEntry struct {
	Gateway   string         `json:"gateway"`
	Action    string         `json:"action"`
	Result    GatewayResult  `json:"result"`
	Data      map[string]any `json:"data,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
