package service

import (
	"context"
	"sync"
	"time"

	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/store"
)

// MockDebitGateway
type MockDebitGateway struct {
	mu    sync.Mutex
	calls int
	Delay time.Duration

	DebitFn func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult
}

func (m *MockDebitGateway) Debit(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.DebitFn != nil {
		return m.DebitFn(ctx, payload, requestID)
	}
	return domain.DebitResult{
		Success:      true,
		StatusCode:   200,
		ResponseData: "OK",
	}
}

func (m *MockDebitGateway) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockTransactionStore
type MockTransactionStore struct {
	mu             sync.Mutex
	authorizations map[string]string

	FindByIDFn            func(ctx context.Context, transactionID string) (*domain.TransactionRecord, error)
	RecordAuthorizationFn func(ctx context.Context, transactionID, authorizationID string) error
}

func NewMockTransactionStore() *MockTransactionStore {
	return &MockTransactionStore{
		authorizations: make(map[string]string),
	}
}

func (m *MockTransactionStore) FindByID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, transactionID)
	}
	return nil, store.ErrTransactionNotFound
}

func (m *MockTransactionStore) RecordAuthorization(ctx context.Context, transactionID, authorizationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordAuthorizationFn != nil {
		return m.RecordAuthorizationFn(ctx, transactionID, authorizationID)
	}
	m.authorizations[transactionID] = authorizationID
	return nil
}

func (m *MockTransactionStore) GetAuthorization(transactionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authorizations[transactionID]
}

// MockDebitProcessor
type MockDebitProcessor struct {
	mu    sync.Mutex
	calls int

	ProcessFn func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult
}

func (m *MockDebitProcessor) Process(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ProcessFn != nil {
		return m.ProcessFn(ctx, raw)
	}
	return domain.DebitResult{
		Success:       true,
		StatusCode:    200,
		ResponseData:  "OK",
		TransactionID: raw.TransactionID,
	}
}

func (m *MockDebitProcessor) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
