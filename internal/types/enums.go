package types

import "strings"

// TransactionStatus is the lifecycle state of a Transaction.
// These values MUST match the CHECK constraint on gateway_transactions.status.
type TransactionStatus string

const (
	TxStatusPending TransactionStatus = "pending"
	TxStatusSuccess TransactionStatus = "success"
	TxStatusFailed  TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is permitted.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxStatusSuccess || s == TxStatusFailed
}

// ParseTransactionStatus normalizes a processor-reported status
// case-insensitively. The second return value is false for unknown values.
func ParseTransactionStatus(raw string) (TransactionStatus, bool) {
	switch s := TransactionStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case TxStatusPending, TxStatusSuccess, TxStatusFailed:
		return s, true
	default:
		return "", false
	}
}

// InvoiceStatus mirrors the billing system's invoice states.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "Unpaid"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

// GatewayResult is the outcome label written to the gateway activity log.
type GatewayResult string

const (
	GatewayResultSuccessful GatewayResult = "Successful"
	GatewayResultFailed     GatewayResult = "Failed"
	GatewayResultPending    GatewayResult = "Pending"
	GatewayResultError      GatewayResult = "Error"
	GatewayResultConflict   GatewayResult = "Conflict"
)

// Gateway action names recorded in the activity log.
const (
	GatewayActionCreateOrder = "create_order"
	GatewayActionWebhook     = "webhook"
)
