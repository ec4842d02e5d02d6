package domain

import "encoding/json"

// DebitResult is the outcome of one debit invocation. Exactly one is created
// per handler call; it is returned to the caller and never persisted here.
// StatusCode is the gateway's own status when a response was received, or a
// synthesized one (400 validation, 408 timeout, 500 network/unexpected).
type DebitResult struct {
	Success          bool    `json:"success"`
	StatusCode       int     `json:"status_code"`
	ResponseData     string  `json:"response_data,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	TransactionID    string  `json:"transaction_id"`
	RequestID        string  `json:"request_id"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// GatewayAcknowledgement is the parsed body of a successful debit response.
// ValidationCode 1 means the debit validated; anything else is a decline
// carried inside a 200.
type GatewayAcknowledgement struct {
	AuthorizationID string `json:"AuthorizationId"`
	ValidationCode  int    `json:"ValidationCode"`
	Message         string `json:"message"`
}

// ParseAcknowledgement decodes a successful gateway body. The API also
// answers text/plain, so a body that is not a JSON object reports ok=false
// rather than an error.
func ParseAcknowledgement(body string) (GatewayAcknowledgement, bool) {
	var ack GatewayAcknowledgement
	if err := json.Unmarshal([]byte(body), &ack); err != nil {
		return GatewayAcknowledgement{}, false
	}
	return ack, true
}
