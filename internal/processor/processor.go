package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/service"
)

// ProcessingOutcome is the processor's verdict for one delivered message.
type ProcessingOutcome string

const (
	OutcomeCompleted        ProcessingOutcome = "Completed"
	OutcomeRetryableFailure ProcessingOutcome = "RetryableFailure"
	OutcomePermanentFailure ProcessingOutcome = "PermanentFailure"
)

// FailureType distinguishes dead-letter causes: validation failures can
// never succeed on redelivery, processing failures exhausted their budget.
type FailureType string

const (
	FailureValidation FailureType = "validation"
	FailureProcessing FailureType = "processing"
)

// MessageResult is what one processed delivery produced: the outcome that
// drives the broker interaction plus the context needed for dead-lettering.
type MessageResult struct {
	CorrelationID string
	Outcome       ProcessingOutcome
	FailureType   FailureType
	Reason        string
	Debit         *domain.DebitResult // nil when the message never dispatched
}

// Processor runs the per-message state machine
// Received -> Parsed -> Dispatched -> {Completed | RetryableFailure | PermanentFailure}.
// It inspects only the handler's DebitResult, never a raised fault.
type Processor struct {
	handler service.DebitProcessor
	logger  *slog.Logger
}

func NewProcessor(handler service.DebitProcessor, logger *slog.Logger) *Processor {
	return &Processor{
		handler: handler,
		logger:  logger,
	}
}

// ProcessMessage classifies one message body under a fresh correlation id.
// Bodies that fail to parse or carry no transaction id go straight to
// PermanentFailure without invoking the handler; redelivering them can never
// succeed. Everything else is dispatched, and the DebitResult decides the
// outcome: success completes, a 400 dead-letters, any other failure is left
// to broker redelivery.
func (p *Processor) ProcessMessage(ctx context.Context, body []byte) MessageResult {
	correlationID := uuid.New().String()
	logger := p.logger.With("correlation_id", correlationID)

	logger.Info("message received", "size_bytes", len(body))

	var raw domain.RawDebitRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Warn("message rejected: malformed body", "error", err)
		return MessageResult{
			CorrelationID: correlationID,
			Outcome:       OutcomePermanentFailure,
			FailureType:   FailureValidation,
			Reason:        fmt.Sprintf("malformed message body: %v", err),
		}
	}

	if strings.TrimSpace(raw.TransactionID) == "" {
		logger.Warn("message rejected: missing transaction_id")
		return MessageResult{
			CorrelationID: correlationID,
			Outcome:       OutcomePermanentFailure,
			FailureType:   FailureValidation,
			Reason:        "missing transaction_id",
		}
	}

	logger.Info("message parsed", "transaction_id", raw.TransactionID)

	result := p.handler.Process(ctx, raw)

	logger.Info("message dispatched",
		"transaction_id", result.TransactionID,
		"request_id", result.RequestID,
	)

	switch {
	case result.Success:
		logger.Info("message completed",
			"transaction_id", result.TransactionID,
			"request_id", result.RequestID,
			"processing_time_ms", result.ProcessingTimeMS,
		)
		return MessageResult{
			CorrelationID: correlationID,
			Outcome:       OutcomeCompleted,
			Debit:         &result,
		}

	case result.StatusCode == 400:
		logger.Warn("message rejected by handler validation",
			"transaction_id", result.TransactionID,
			"request_id", result.RequestID,
			"error_message", result.ErrorMessage,
		)
		return MessageResult{
			CorrelationID: correlationID,
			Outcome:       OutcomePermanentFailure,
			FailureType:   FailureValidation,
			Reason:        result.ErrorMessage,
			Debit:         &result,
		}

	default:
		logger.Warn("message failed, eligible for redelivery",
			"transaction_id", result.TransactionID,
			"request_id", result.RequestID,
			"status_code", result.StatusCode,
			"error_message", result.ErrorMessage,
		)
		return MessageResult{
			CorrelationID: correlationID,
			Outcome:       OutcomeRetryableFailure,
			FailureType:   FailureProcessing,
			Reason:        result.ErrorMessage,
			Debit:         &result,
		}
	}
}
