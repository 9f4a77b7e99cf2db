package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

// txMockRows implements pgx.Rows over a slice of per-row scan functions.
type txMockRows struct {
	scans  []func(dest ...any) error
	idx    int
	closed bool
	errVal error
}

func newTxMockRows(scans ...func(dest ...any) error) *txMockRows {
	return &txMockRows{scans: scans, idx: -1}
}

func (r *txMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.scans)
}

func (r *txMockRows) Scan(dest ...any) error {
	if r.idx >= 0 && r.idx < len(r.scans) {
		return r.scans[r.idx](dest...)
	}
	return errors.New("no current row")
}

func (r *txMockRows) Close()                                       { r.closed = true }
func (r *txMockRows) Err() error                                   { return r.errVal }
func (r *txMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *txMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *txMockRows) RawValues() [][]byte                          { return nil }
func (r *txMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *txMockRows) Conn() *pgx.Conn                              { return nil }
