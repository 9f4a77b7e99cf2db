package payment

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"paygate/internal/external"
	"paygate/internal/types"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateOrder(ctx context.Context, in external.CreateOrderRequest) (*external.CreateOrderResponse, error) {
	args := m.Called(ctx, in)
	resp, _ := args.Get(0).(*external.CreateOrderResponse)
	return resp, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, tx *types.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *mockStore) ListByInvoice(ctx context.Context, invoiceID int64) ([]*types.Transaction, error) {
	args := m.Called(ctx, invoiceID)
	txs, _ := args.Get(0).([]*types.Transaction)
	return txs, args.Error(1)
}

type mockInvoices struct {
	mock.Mock
}

func (m *mockInvoices) GetInvoice(ctx context.Context, id int64) (*types.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*types.Invoice)
	return inv, args.Error(1)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreatePayment(ctx context.Context, in CreatePaymentInput, creds Credentials) (*RedirectInstruction, error) {
	args := m.Called(ctx, in, creds)
	ri, _ := args.Get(0).(*RedirectInstruction)
	return ri, args.Error(1)
}

// captureRecorder keeps gateway log entries in memory.
type captureRecorder struct {
	mu      sync.Mutex
	entries []types.GatewayLogEntry
}

func (c *captureRecorder) Record(_ context.Context, e types.GatewayLogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

type countingMetrics struct {
	mu      sync.Mutex
	results []string
}

func (c *countingMetrics) RecordOrder(_ context.Context, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}
