package domain

import (
	"encoding/json"
	"strings"
)

// Policy defaults applied to omitted banking fields. Correctness of
// caller-supplied values is the caller's responsibility; no format
// checking is performed here.
const (
	DefaultRoutingNumber = "121000358"
	DefaultAccountNumber = "5428610017522"
	DefaultSECCode       = "POS"
	DefaultAccountType   = "Personal Checking"
)

// RawDebitRequest is the inbound request shape shared by the HTTP body and
// the queue message body. Known fields are lifted out; everything else is
// kept as pass-through metadata.
type RawDebitRequest struct {
	TransactionID string
	RoutingNumber string
	AccountNumber string
	SECCode       string
	AccountType   string
	Metadata      map[string]any
}

func (r *RawDebitRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Metadata = make(map[string]any)
	for key, value := range fields {
		switch key {
		case "transaction_id":
			r.TransactionID, _ = value.(string)
		case "routing_number":
			r.RoutingNumber, _ = value.(string)
		case "account_number":
			r.AccountNumber, _ = value.(string)
		case "sec_code":
			r.SECCode, _ = value.(string)
		case "account_type":
			r.AccountType, _ = value.(string)
		default:
			r.Metadata[key] = value
		}
	}
	return nil
}

// TransactionRequest is a validated, normalized debit request. Construct it
// with NewTransactionRequest; a zero value is not meaningful.
type TransactionRequest struct {
	TransactionID string
	RoutingNumber string
	AccountNumber string
	SECCode       string
	AccountType   string
	Metadata      map[string]any
}

// NewTransactionRequest validates a raw request and fills policy defaults for
// omitted banking fields. It is a pure function of its input: no side
// effects, and the same raw request always yields the same result.
func NewTransactionRequest(raw RawDebitRequest) (TransactionRequest, error) {
	transactionID := strings.TrimSpace(raw.TransactionID)
	if transactionID == "" {
		return TransactionRequest{}, NewValidationError("missing transaction_id")
	}

	req := TransactionRequest{
		TransactionID: transactionID,
		RoutingNumber: defaultIfBlank(raw.RoutingNumber, DefaultRoutingNumber),
		AccountNumber: defaultIfBlank(raw.AccountNumber, DefaultAccountNumber),
		SECCode:       defaultIfBlank(raw.SECCode, DefaultSECCode),
		AccountType:   defaultIfBlank(raw.AccountType, DefaultAccountType),
	}

	if len(raw.Metadata) > 0 {
		req.Metadata = make(map[string]any, len(raw.Metadata))
		for key, value := range raw.Metadata {
			req.Metadata[key] = value
		}
	}

	return req, nil
}

func defaultIfBlank(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
