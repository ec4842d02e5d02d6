package service

import (
	"context"

	"github.com/merchflow/echeck-debit-gateway/internal/domain"
)

// DebitGateway submits a debit payload to the external gateway. It never
// returns an error: every failure mode is folded into the DebitResult.
type DebitGateway interface {
	Debit(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult
}

// TransactionStore loads enrichment records and records gateway authorizations.
type TransactionStore interface {
	FindByID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error)
	RecordAuthorization(ctx context.Context, transactionID, authorizationID string) error
}

// DebitProcessor handles one raw debit request end to end.
type DebitProcessor interface {
	Process(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult
}

// Ensure concrete types implement interfaces
var _ DebitProcessor = (*DebitService)(nil)
