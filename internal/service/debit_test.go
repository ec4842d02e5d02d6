package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestDebitService_Process_Success(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{
		TransactionID: "TEST123",
	})

	// Assert
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
	if result.TransactionID != "TEST123" {
		t.Errorf("expected transaction id TEST123, got %q", result.TransactionID)
	}
	if result.RequestID == "" {
		t.Error("expected request id set")
	}
	if result.ProcessingTimeMS < 0 {
		t.Errorf("expected non-negative processing time, got %f", result.ProcessingTimeMS)
	}
	if mockGateway.GetCalls() != 1 {
		t.Errorf("expected exactly one gateway call, got %d", mockGateway.GetCalls())
	}
}

func TestDebitService_Process_MissingTransactionID_SkipsGateway(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{
		TransactionID: "   ",
	})

	// Assert
	if result.Success {
		t.Fatal("expected failure for blank transaction id")
	}
	if result.StatusCode != 400 {
		t.Errorf("expected status 400, got %d", result.StatusCode)
	}
	if result.ErrorMessage != "missing transaction_id" {
		t.Errorf("expected missing transaction_id message, got %q", result.ErrorMessage)
	}
	if result.RequestID == "" {
		t.Error("expected request id set on validation failure")
	}
	if mockGateway.GetCalls() != 0 {
		t.Errorf("expected no gateway calls, got %d", mockGateway.GetCalls())
	}
}

func TestDebitService_Process_FreshRequestIDPerInvocation(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	first := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-1"})
	second := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-1"})

	// Assert
	if first.RequestID == second.RequestID {
		t.Errorf("expected distinct request ids, both were %q", first.RequestID)
	}
}

func TestDebitService_Process_DefaultsReachGateway(t *testing.T) {
	// Setup
	var captured domain.DebitPayload
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			captured = payload
			return domain.DebitResult{Success: true, StatusCode: 200, ResponseData: "OK"}
		},
	}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-9"})

	// Assert
	if captured.Routing != domain.DefaultRoutingNumber {
		t.Errorf("expected default routing, got %q", captured.Routing)
	}
	if captured.AccountNumber != domain.DefaultAccountNumber {
		t.Errorf("expected default account number, got %q", captured.AccountNumber)
	}
	if captured.SECCode != domain.DefaultSECCode {
		t.Errorf("expected default sec code, got %q", captured.SECCode)
	}
	if captured.AccountType != domain.DefaultAccountType {
		t.Errorf("expected default account type, got %q", captured.AccountType)
	}
}

func TestDebitService_Process_GatewayFailurePassesThrough(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			return domain.DebitResult{Success: false, StatusCode: 503, ErrorMessage: "upstream unavailable"}
		},
	}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-5"})

	// Assert
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", result.StatusCode)
	}
	if result.ErrorMessage != "upstream unavailable" {
		t.Errorf("expected gateway error message, got %q", result.ErrorMessage)
	}
	if result.TransactionID != "TXN-5" {
		t.Errorf("expected transaction id stamped, got %q", result.TransactionID)
	}
}

func TestDebitService_Process_PanicBecomesInternalError(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			panic("gateway exploded")
		},
	}
	service := NewDebitService(mockGateway, nil, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-7"})

	// Assert
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", result.StatusCode)
	}
	if result.ErrorMessage != "unexpected error" {
		t.Errorf("expected generic error message, got %q", result.ErrorMessage)
	}
	if result.RequestID == "" {
		t.Error("expected request id set after panic")
	}
	if result.ProcessingTimeMS < 0 {
		t.Errorf("expected processing time stamped after panic, got %f", result.ProcessingTimeMS)
	}
}

func TestDebitService_Process_RecordEnrichesPayload(t *testing.T) {
	// Setup
	var captured domain.DebitPayload
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			captured = payload
			return domain.DebitResult{Success: true, StatusCode: 200, ResponseData: "OK"}
		},
	}
	mockStore := NewMockTransactionStore()
	mockStore.FindByIDFn = func(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
		return &domain.TransactionRecord{
			TransactionID: transactionID,
			TotalAmount:   decimal.RequireFromString("149.99"),
			ACHTransType:  "WEB",
			FirstName:     "Ada",
			LastName:      "Lovelace",
		}, nil
	}
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-2"})

	// Assert
	if captured.CheckAmount != 149.99 {
		t.Errorf("expected check amount 149.99, got %f", captured.CheckAmount)
	}
	if captured.SECCode != "WEB" {
		t.Errorf("expected sec code from record, got %q", captured.SECCode)
	}
	if captured.FirstName != "Ada" || captured.LastName != "Lovelace" {
		t.Errorf("expected consumer name on payload, got %q %q", captured.FirstName, captured.LastName)
	}
}

func TestDebitService_Process_StoreFailureDegradesToUnenriched(t *testing.T) {
	// Setup
	var captured domain.DebitPayload
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			captured = payload
			return domain.DebitResult{Success: true, StatusCode: 200, ResponseData: "OK"}
		},
	}
	mockStore := NewMockTransactionStore()
	mockStore.FindByIDFn = func(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
		return nil, errors.New("connection reset")
	}
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-3"})

	// Assert
	if !result.Success {
		t.Fatalf("expected success despite store failure, got %+v", result)
	}
	if captured.CheckAmount != 0 {
		t.Errorf("expected unenriched payload, got amount %f", captured.CheckAmount)
	}
	if captured.Routing != domain.DefaultRoutingNumber {
		t.Errorf("expected default routing, got %q", captured.Routing)
	}
}

func TestDebitService_Process_RecordsAuthorization(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			return domain.DebitResult{
				Success:      true,
				StatusCode:   200,
				ResponseData: `{"AuthorizationId":"auth-4821","ValidationCode":1,"message":"approved"}`,
			}
		},
	}
	mockStore := NewMockTransactionStore()
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-4"})

	// Assert
	if got := mockStore.GetAuthorization("TXN-4"); got != "auth-4821" {
		t.Errorf("expected authorization recorded, got %q", got)
	}
}

func TestDebitService_Process_ValidationDeclineNotRecorded(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			return domain.DebitResult{
				Success:      true,
				StatusCode:   200,
				ResponseData: `{"AuthorizationId":"auth-9","ValidationCode":2,"message":"declined"}`,
			}
		},
	}
	mockStore := NewMockTransactionStore()
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-6"})

	// Assert
	if got := mockStore.GetAuthorization("TXN-6"); got != "" {
		t.Errorf("expected no authorization recorded for decline, got %q", got)
	}
}

func TestDebitService_Process_PlainTextBodyNotRecorded(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{}
	mockStore := NewMockTransactionStore()
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-8"})

	// Assert
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if got := mockStore.GetAuthorization("TXN-8"); got != "" {
		t.Errorf("expected no authorization recorded for plain text body, got %q", got)
	}
}

func TestDebitService_Process_StoreWriteFailureDoesNotFailDebit(t *testing.T) {
	// Setup
	mockGateway := &MockDebitGateway{
		DebitFn: func(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
			return domain.DebitResult{
				Success:      true,
				StatusCode:   200,
				ResponseData: `{"AuthorizationId":"auth-1","ValidationCode":1,"message":"approved"}`,
			}
		},
	}
	mockStore := NewMockTransactionStore()
	mockStore.RecordAuthorizationFn = func(ctx context.Context, transactionID, authorizationID string) error {
		return errors.New("write failed")
	}
	service := NewDebitService(mockGateway, mockStore, testLogger())

	// Action
	result := service.Process(context.Background(), domain.RawDebitRequest{TransactionID: "TXN-10"})

	// Assert
	if !result.Success {
		t.Fatalf("expected success despite write failure, got %+v", result)
	}
	if result.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
}
