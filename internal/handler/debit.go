package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/service"
)

// DebitRequest is the documented wire shape of a debit submission. Fields
// beyond these are accepted and passed through to the gateway call as
// metadata.
type DebitRequest struct {
	TransactionID string `json:"transaction_id" example:"TXN1001"`
	RoutingNumber string `json:"routing_number,omitempty" example:"121000358"`
	AccountNumber string `json:"account_number,omitempty" example:"5428610017522"`
	SECCode       string `json:"sec_code,omitempty" example:"POS"`
	AccountType   string `json:"account_type,omitempty" example:"Personal Checking"`
}

// DebitHandler exposes the debit pipeline over HTTP. The response body is
// always a DebitResult and the HTTP status mirrors its status_code, so the
// direct path and the queue path observe identical outcomes.
type DebitHandler struct {
	service service.DebitProcessor
	logger  *slog.Logger
}

func NewDebitHandler(service service.DebitProcessor, logger *slog.Logger) *DebitHandler {
	return &DebitHandler{
		service: service,
		logger:  logger,
	}
}

func (h *DebitHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /debit", h.HandleDebit)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

// HandleDebit processes one debit transaction
// @Summary      Submit a debit transaction
// @Description  Validates the request, submits it to the external debit gateway exactly once, and returns the outcome. The HTTP status mirrors the result's status_code.
// @Tags         debit
// @Accept       json
// @Produce      json
// @Param        request  body      DebitRequest        true  "Debit request"
// @Success      200      {object}  domain.DebitResult  "Gateway accepted the debit"
// @Failure      400      {object}  domain.DebitResult  "No JSON body or missing transaction_id"
// @Failure      408      {object}  domain.DebitResult  "Gateway timed out"
// @Failure      500      {object}  domain.DebitResult  "Network or unexpected failure"
// @Router       /debit [post]
func (h *DebitHandler) HandleDebit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		h.respondNoBody(w)
		return
	}

	var raw domain.RawDebitRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		h.respondNoBody(w)
		return
	}

	result := h.service.Process(r.Context(), raw)
	respondWithJSON(w, result.StatusCode, result)
}

// HandleHealth reports process liveness
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *DebitHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondNoBody rejects a request whose body could not be parsed, before a
// debit attempt exists. The request id generated here only identifies this
// rejection in the logs.
func (h *DebitHandler) respondNoBody(w http.ResponseWriter) {
	requestID := uuid.New().String()
	h.logger.Warn("no JSON body provided", "request_id", requestID)
	respondWithJSON(w, http.StatusBadRequest, domain.DebitResult{
		Success:      false,
		StatusCode:   http.StatusBadRequest,
		ErrorMessage: "No JSON body provided",
		RequestID:    requestID,
	})
}
