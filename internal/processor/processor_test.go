package processor

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestProcessor_ProcessMessage_Completed(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	result := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TEST123"}`))

	// Assert
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected Completed, got %s", result.Outcome)
	}
	if result.CorrelationID == "" {
		t.Error("expected correlation id set")
	}
	if result.Debit == nil || result.Debit.TransactionID != "TEST123" {
		t.Errorf("expected debit result for TEST123, got %+v", result.Debit)
	}
	if mockHandler.GetCalls() != 1 {
		t.Errorf("expected exactly one handler call, got %d", mockHandler.GetCalls())
	}
}

func TestProcessor_ProcessMessage_MalformedBody_SkipsHandler(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	result := processor.ProcessMessage(context.Background(), []byte(`{not json`))

	// Assert
	if result.Outcome != OutcomePermanentFailure {
		t.Fatalf("expected PermanentFailure, got %s", result.Outcome)
	}
	if result.FailureType != FailureValidation {
		t.Errorf("expected validation failure type, got %s", result.FailureType)
	}
	if result.Debit != nil {
		t.Errorf("expected no debit result, got %+v", result.Debit)
	}
	if mockHandler.GetCalls() != 0 {
		t.Errorf("expected no handler calls, got %d", mockHandler.GetCalls())
	}
}

func TestProcessor_ProcessMessage_MissingTransactionID_SkipsHandler(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{}
	processor := NewProcessor(mockHandler, testLogger())

	cases := map[string]string{
		"absent field": `{"timestamp":"2026-08-26T12:00:00Z"}`,
		"null value":   `{"transaction_id":null}`,
		"blank value":  `{"transaction_id":"   "}`,
		"non-string":   `{"transaction_id":42}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			// Action
			result := processor.ProcessMessage(context.Background(), []byte(body))

			// Assert
			if result.Outcome != OutcomePermanentFailure {
				t.Fatalf("expected PermanentFailure, got %s", result.Outcome)
			}
			if result.Reason != "missing transaction_id" {
				t.Errorf("expected missing transaction_id reason, got %q", result.Reason)
			}
		})
	}

	if mockHandler.GetCalls() != 0 {
		t.Errorf("expected no handler calls, got %d", mockHandler.GetCalls())
	}
}

func TestProcessor_ProcessMessage_GatewayUnavailable_Retryable(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{
		ProcessFn: func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
			return domain.DebitResult{
				Success:       false,
				StatusCode:    503,
				ErrorMessage:  "upstream unavailable",
				TransactionID: raw.TransactionID,
				RequestID:     "req-1",
			}
		},
	}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	result := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TXN-1"}`))

	// Assert
	if result.Outcome != OutcomeRetryableFailure {
		t.Fatalf("expected RetryableFailure, got %s", result.Outcome)
	}
	if result.FailureType != FailureProcessing {
		t.Errorf("expected processing failure type, got %s", result.FailureType)
	}
	if result.Reason != "upstream unavailable" {
		t.Errorf("expected gateway error as reason, got %q", result.Reason)
	}
}

func TestProcessor_ProcessMessage_Timeout_Retryable(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{
		ProcessFn: func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
			return domain.DebitResult{
				Success:       false,
				StatusCode:    408,
				ErrorMessage:  "request timeout",
				TransactionID: raw.TransactionID,
			}
		},
	}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	result := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TXN-2"}`))

	// Assert
	if result.Outcome != OutcomeRetryableFailure {
		t.Fatalf("expected RetryableFailure, got %s", result.Outcome)
	}
}

func TestProcessor_ProcessMessage_HandlerValidation_Permanent(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{
		ProcessFn: func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
			return domain.DebitResult{
				Success:      false,
				StatusCode:   400,
				ErrorMessage: "missing transaction_id",
			}
		},
	}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	result := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TXN-3"}`))

	// Assert
	if result.Outcome != OutcomePermanentFailure {
		t.Fatalf("expected PermanentFailure, got %s", result.Outcome)
	}
	if result.FailureType != FailureValidation {
		t.Errorf("expected validation failure type, got %s", result.FailureType)
	}
}

func TestProcessor_ProcessMessage_CorrelationDistinctFromRequestID(t *testing.T) {
	// Setup
	mockHandler := &service.MockDebitProcessor{
		ProcessFn: func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
			return domain.DebitResult{
				Success:       true,
				StatusCode:    200,
				TransactionID: raw.TransactionID,
				RequestID:     "req-fixed",
			}
		},
	}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	first := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TXN-4"}`))
	second := processor.ProcessMessage(context.Background(), []byte(`{"transaction_id":"TXN-4"}`))

	// Assert
	if first.CorrelationID == first.Debit.RequestID {
		t.Error("expected correlation id distinct from request id")
	}
	if first.CorrelationID == second.CorrelationID {
		t.Errorf("expected distinct correlation ids per delivery, both were %q", first.CorrelationID)
	}
}

func TestProcessor_ProcessMessage_MetadataAccepted(t *testing.T) {
	// Setup
	var captured domain.RawDebitRequest
	mockHandler := &service.MockDebitProcessor{
		ProcessFn: func(ctx context.Context, raw domain.RawDebitRequest) domain.DebitResult {
			captured = raw
			return domain.DebitResult{Success: true, StatusCode: 200, TransactionID: raw.TransactionID}
		},
	}
	processor := NewProcessor(mockHandler, testLogger())

	// Action
	body := []byte(`{"transaction_id":"TXN-5","timestamp":"2026-08-26T12:00:00Z","batch":"nightly"}`)
	result := processor.ProcessMessage(context.Background(), body)

	// Assert
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected Completed, got %s", result.Outcome)
	}
	if captured.TransactionID != "TXN-5" {
		t.Errorf("expected transaction id TXN-5, got %q", captured.TransactionID)
	}
	if captured.Metadata["batch"] != "nightly" {
		t.Errorf("expected metadata passed through, got %v", captured.Metadata)
	}
}
