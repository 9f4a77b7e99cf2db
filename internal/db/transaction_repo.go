package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"paygate/internal/types"
)

// TransactionRepo persists payment attempts in gateway_transactions.
//
// The status column only ever moves forward through CompareAndSetStatus;
// rows are never deleted.
type TransactionRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewTransactionRepo creates a new TransactionRepo backed by the given
// database connection.
func NewTransactionRepo(db DBTX, logger *slog.Logger) *TransactionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionRepo{db: db, logger: logger}
}

const txColumns = `id, invoice_id, external_transaction_id, order_id, amount::text, currency, status, created_at, updated_at`

// Create inserts a pending transaction and fills in the store-owned fields
// (ID, CreatedAt, UpdatedAt). A row for the same external transaction id
// yields ErrCodeConflictDuplicateTransaction.
func (r *TransactionRepo) Create(ctx context.Context, tx *types.Transaction) error {
	if tx.Status == "" {
		tx.Status = types.TxStatusPending
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO gateway_transactions
		    (invoice_id, external_transaction_id, order_id, amount, currency, status)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)
		 RETURNING id, created_at, updated_at`,
		tx.InvoiceID,
		tx.ExternalTransactionID,
		tx.OrderID,
		tx.Amount.StringFixed(2),
		tx.Currency,
		string(tx.Status),
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppErrorWithDetails(
				types.ErrCodeConflictDuplicateTransaction,
				"transaction already recorded",
				err,
				map[string]any{"external_transaction_id": tx.ExternalTransactionID},
			)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create transaction", err)
	}
	return nil
}

// GetByExternalID loads the transaction identified by the processor's
// payment id.
func (r *TransactionRepo) GetByExternalID(ctx context.Context, externalID string) (*types.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+txColumns+`
		 FROM gateway_transactions
		 WHERE external_transaction_id = $1`,
		externalID,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTransaction, "transaction not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load transaction", err)
	}
	return tx, nil
}

// CompareAndSetStatus atomically moves a transaction from one status to
// another. It returns true only for the caller whose update changed the row.
func (r *TransactionRepo) CompareAndSetStatus(ctx context.Context, externalID string, from, to types.TransactionStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE gateway_transactions
		 SET status = $3, updated_at = NOW()
		 WHERE external_transaction_id = $1 AND status = $2`,
		externalID, string(from), string(to),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to update transaction status", err)
	}

	won := tag.RowsAffected() == 1
	r.logger.DebugContext(ctx, "transaction status cas",
		"external_transaction_id", externalID,
		"from", from,
		"to", to,
		"won", won,
	)
	return won, nil
}

// ListByInvoice returns every attempt recorded for an invoice, newest first.
func (r *TransactionRepo) ListByInvoice(ctx context.Context, invoiceID int64) ([]*types.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txColumns+`
		 FROM gateway_transactions
		 WHERE invoice_id = $1
		 ORDER BY created_at DESC, id DESC`,
		invoiceID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list transactions", err)
	}
	defer rows.Close()

	results := make([]*types.Transaction, 0)
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan transaction row", scanErr)
		}
		results = append(results, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating transaction rows", err)
	}
	return results, nil
}

// scanTransaction reads txColumns from a row.
func scanTransaction(row pgx.Row) (*types.Transaction, error) {
	var (
		tx     types.Transaction
		amount string
		status string
	)
	if err := row.Scan(
		&tx.ID,
		&tx.InvoiceID,
		&tx.ExternalTransactionID,
		&tx.OrderID,
		&amount,
		&tx.Currency,
		&status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	tx.Amount = parsed
	tx.Status = types.TransactionStatus(status)
	return &tx, nil
}
