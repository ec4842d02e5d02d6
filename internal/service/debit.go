package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/store"
)

// DebitService orchestrates a single debit attempt: validate the request,
// enrich it from the transaction store when one is configured, submit it to
// the gateway, and write back the gateway's authorization id.
type DebitService struct {
	gateway DebitGateway
	store   TransactionStore // nil when no database is configured
	logger  *slog.Logger
}

func NewDebitService(gateway DebitGateway, store TransactionStore, logger *slog.Logger) *DebitService {
	return &DebitService{
		gateway: gateway,
		store:   store,
		logger:  logger,
	}
}

// Process runs one debit attempt under a fresh request id. It always returns
// a DebitResult stamped with the request id and elapsed time: validation
// failures come back as 400 without touching the gateway, gateway outcomes
// pass through unchanged, and a panic is folded into a 500. The gateway is
// called at most once per invocation.
func (s *DebitService) Process(ctx context.Context, raw domain.RawDebitRequest) (result domain.DebitResult) {
	requestID := uuid.New().String()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic while processing debit",
				"request_id", requestID,
				"panic", r,
			)
			result = domain.DebitResult{
				Success:      false,
				StatusCode:   500,
				ErrorMessage: "unexpected error",
			}
		}
		result.RequestID = requestID
		result.ProcessingTimeMS = time.Since(start).Seconds() * 1000
	}()

	s.logger.Info("processing debit request",
		"request_id", requestID,
		"transaction_id", raw.TransactionID,
	)

	req, err := domain.NewTransactionRequest(raw)
	if err != nil {
		s.logger.Warn("debit request rejected",
			"request_id", requestID,
			"error", err,
		)
		return domain.DebitResult{
			Success:      false,
			StatusCode:   400,
			ErrorMessage: err.Error(),
		}
	}

	record := s.lookupRecord(ctx, requestID, req.TransactionID)

	payload := domain.BuildDebitPayload(req, record)
	result = s.gateway.Debit(ctx, payload, requestID)
	result.TransactionID = req.TransactionID

	if result.Success {
		s.recordAcknowledgement(ctx, requestID, req.TransactionID, result.ResponseData)
	}

	s.logger.Info("debit request finished",
		"request_id", requestID,
		"transaction_id", req.TransactionID,
		"status_code", result.StatusCode,
		"success", result.Success,
	)

	return result
}

// lookupRecord fetches the enrichment record for a transaction. A missing row
// or a store error degrades to an unenriched payload rather than failing the
// debit.
func (s *DebitService) lookupRecord(ctx context.Context, requestID, transactionID string) *domain.TransactionRecord {
	if s.store == nil {
		return nil
	}

	record, err := s.store.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			s.logger.Warn("no transaction record found",
				"request_id", requestID,
				"transaction_id", transactionID,
			)
		} else {
			s.logger.Error("transaction lookup failed",
				"request_id", requestID,
				"transaction_id", transactionID,
				"error", err,
			)
		}
		return nil
	}

	return record
}

// recordAcknowledgement parses the gateway's success body and writes the
// authorization id back to the store. Bodies that are not acknowledgement
// JSON are ignored.
func (s *DebitService) recordAcknowledgement(ctx context.Context, requestID, transactionID, body string) {
	ack, ok := domain.ParseAcknowledgement(body)
	if !ok {
		return
	}

	if ack.ValidationCode != 1 {
		s.logger.Warn("gateway acknowledged debit with validation failure",
			"request_id", requestID,
			"transaction_id", transactionID,
			"validation_code", ack.ValidationCode,
			"message", ack.Message,
		)
		return
	}

	if ack.AuthorizationID == "" || s.store == nil {
		return
	}

	if err := s.store.RecordAuthorization(ctx, transactionID, ack.AuthorizationID); err != nil {
		s.logger.Error("failed to record gateway authorization",
			"request_id", requestID,
			"transaction_id", transactionID,
			"authorization_id", ack.AuthorizationID,
			"error", err,
		)
	}
}
