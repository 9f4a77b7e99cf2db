package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

// InvoiceRepo is the Postgres adapter for the billing system's invoices.
// Deployments that own their billing tables use it directly; others provide
// their own implementation of the invoice service interface.
type InvoiceRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(db DBTX, logger *slog.Logger) *InvoiceRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceRepo{db: db, logger: logger}
}

// GetInvoice loads an invoice by id.
func (r *InvoiceRepo) GetInvoice(ctx context.Context, id int64) (*types.Invoice, error) {
	var (
		inv    types.Invoice
		status string
		total  string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, status, total::text, currency, notes
		 FROM invoices
		 WHERE id = $1`,
		id,
	).Scan(&inv.ID, &status, &total, &inv.Currency, &inv.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load invoice", err)
	}

	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to parse invoice total", fmt.Errorf("total %q: %w", total, err))
	}
	inv.Total = parsed
	inv.Status = types.InvoiceStatus(status)
	return &inv, nil
}

// AddPayment records a credit against an invoice and flips it to Paid once
// the credits cover the total. Applying the same transaction id twice is a
// no-op.
func (r *InvoiceRepo) AddPayment(ctx context.Context, p types.InvoicePayment) error {
	// The CTE's subquery does not see the row being inserted, so the new
	// amount is added explicitly.
	tag, err := r.db.Exec(ctx,
		`WITH paid AS (
		     INSERT INTO invoice_payments (invoice_id, transaction_id, amount, gateway)
		     VALUES ($1, $2, $3::numeric, $4)
		     RETURNING invoice_id
		 )
		 UPDATE invoices i
		 SET status = 'Paid', updated_at = NOW()
		 FROM paid
		 WHERE i.id = paid.invoice_id
		   AND i.status = 'Unpaid'
		   AND i.total <= $3::numeric + (
		       SELECT COALESCE(SUM(amount), 0) FROM invoice_payments WHERE invoice_id = $1
		   )`,
		p.InvoiceID, p.TransactionID, p.Amount.StringFixed(2), p.Gateway,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.InfoContext(ctx, "invoice payment already applied",
				"invoice_id", p.InvoiceID,
				"transaction_id", p.TransactionID,
			)
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to add invoice payment", err)
	}

	r.logger.InfoContext(ctx, "invoice payment applied",
		"invoice_id", p.InvoiceID,
		"transaction_id", p.TransactionID,
		"amount", p.Amount.StringFixed(2),
		"gateway", p.Gateway,
		"invoice_settled", tag.RowsAffected() == 1,
	)
	return nil
}

// MarkUnpaid records a failed payment by appending note to an Unpaid
// invoice. Paid and Cancelled invoices keep their status and notes.
func (r *InvoiceRepo) MarkUnpaid(ctx context.Context, invoiceID int64, note string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices
		 SET notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'Unpaid'`,
		invoiceID, note,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark invoice unpaid", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "failed payment not noted on invoice",
			"invoice_id", invoiceID,
			"reason", "missing or no longer unpaid",
		)
	}
	return nil
}
