package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/merchflow/echeck-debit-gateway/internal/config"
	"github.com/merchflow/echeck-debit-gateway/internal/domain"
)

const debitPath = "/api/v1/echeck/debit"

// Client talks to the external debit API. It is safe for concurrent use;
// the underlying transport pools connections across calls.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
	}
}

// Debit issues exactly one call to the debit endpoint. Expected failures
// never surface as errors: every outcome is folded into the DebitResult,
// and retry is the caller's (or the broker's) concern, not this client's.
func (c *Client) Debit(ctx context.Context, payload domain.DebitPayload, requestID string) domain.DebitResult {
	result := domain.DebitResult{
		TransactionID: payload.UniqueTranID,
		RequestID:     requestID,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		result.StatusCode = http.StatusInternalServerError
		result.ErrorMessage = "unexpected error"
		return result
	}

	url := c.baseURL + debitPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		result.StatusCode = http.StatusInternalServerError
		result.ErrorMessage = "unexpected error"
		return result
	}

	httpReq.Header.Set("accept", "text/plain")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.classifyTransportError(err, result)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Reading the body is still subject to the total timeout.
		return c.classifyTransportError(err, result)
	}

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
		result.ResponseData = string(body)
		return result
	}

	message := string(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	result.ErrorMessage = message
	return result
}

// classifyTransportError maps a failed outbound call onto the result:
// timeouts (connect or total) become 408, everything else connection-level
// becomes 500 with a description of the network failure.
func (c *Client) classifyTransportError(err error, result domain.DebitResult) domain.DebitResult {
	result.Success = false

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		result.StatusCode = http.StatusRequestTimeout
		result.ErrorMessage = fmt.Sprintf(
			"request timeout - debit gateway did not respond within %s", c.httpClient.Timeout,
		)
		return result
	}

	result.StatusCode = http.StatusInternalServerError
	result.ErrorMessage = fmt.Sprintf("failed to call debit gateway: %v", err)
	return result
}
