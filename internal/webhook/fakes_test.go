package webhook

import (
	"context"
	"sync"
	"sync/atomic"

	"paygate/internal/types"
)

// memStore is an in-memory TransactionStore whose swap is atomic under a
// mutex, mirroring the conditional UPDATE in Postgres.
type memStore struct {
	mu    sync.Mutex
	rows  map[string]*types.Transaction
	calls atomic.Int64
}

func newMemStore(txs ...*types.Transaction) *memStore {
	s := &memStore{rows: make(map[string]*types.Transaction)}
	for _, tx := range txs {
		cp := *tx
		s.rows[tx.ExternalTransactionID] = &cp
	}
	return s
}

func (s *memStore) GetByExternalID(_ context.Context, id string) (*types.Transaction, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundTransaction, "transaction not found", nil)
	}
	cp := *tx
	return &cp, nil
}

func (s *memStore) CompareAndSetStatus(_ context.Context, id string, from, to types.TransactionStatus) (bool, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	tx.Status = to
	return true, nil
}

func (s *memStore) status(id string) types.TransactionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Status
}

// memInvoices records every side effect it receives.
type memInvoices struct {
	mu       sync.Mutex
	invoices map[int64]*types.Invoice
	payments []types.InvoicePayment
	unpaid   []string
	addErr   error
	calls    atomic.Int64
}

func newMemInvoices(invs ...*types.Invoice) *memInvoices {
	m := &memInvoices{invoices: make(map[int64]*types.Invoice)}
	for _, inv := range invs {
		cp := *inv
		m.invoices[inv.ID] = &cp
	}
	return m
}

func (m *memInvoices) GetInvoice(_ context.Context, id int64) (*types.Invoice, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", nil)
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) AddPayment(_ context.Context, p types.InvoicePayment) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.payments = append(m.payments, p)
	m.invoices[p.InvoiceID].Status = types.InvoiceStatusPaid
	return nil
}

func (m *memInvoices) MarkUnpaid(_ context.Context, id int64, note string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unpaid = append(m.unpaid, note)
	if inv := m.invoices[id]; inv.Status == types.InvoiceStatusUnpaid {
		inv.Notes = note
	}
	return nil
}

func (m *memInvoices) paymentsSnapshot() []types.InvoicePayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.InvoicePayment(nil), m.payments...)
}

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

func (c *captureRecorder) results() []types.GatewayResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.GatewayResult, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Result)
	}
	return out
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingMetrics) RecordWebhook(_ context.Context, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func (c *countingMetrics) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[outcome]
}
