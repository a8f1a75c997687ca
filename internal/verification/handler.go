package verification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/oneguard-gw/internal/log"
)

const maxRequestBytes = 1 << 20

// Forwarder is the upstream call the handler depends on.
type Forwarder interface {
	Forward(ctx context.Context, payload Payload, apiKey, endpoint string) (*RawResponse, error)
}

// ForwardResponse is the JSON envelope returned to the caller.
type ForwardResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	Data    any               `json:"data,omitempty"`
	HTML    bool              `json:"html"`
}

// ErrorResponse is the JSON response for proxy errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Handler serves the verification proxy endpoint.
type Handler struct {
	forwarder Forwarder
	endpoints Endpoints
	logger    *slog.Logger
}

func NewHandler(forwarder Forwarder, endpoints Endpoints, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{forwarder: forwarder, endpoints: endpoints, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithRequest(h.logger, middleware.GetReqID(r.Context()))

	var req Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	apiKey, err := ResolveAPIKey(r.Header.Get(APIKeyHeader), &req)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	payload, err := Normalize(req)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	endpoint := h.endpoints.Select(req.Environment)
	logger.Debug("forwarding verification request", "endpoint", endpoint, "test_mode", payload.TestMode)

	resp, err := h.forwarder.Forward(r.Context(), payload, apiKey, endpoint)
	if err != nil {
		status := http.StatusBadGateway
		var timeout interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
			status = http.StatusGatewayTimeout
		}
		logger.Error("verification request failed", "endpoint", endpoint, "error", err)
		respondJSON(w, status, ErrorResponse{Error: "Verification request failed", Detail: err.Error()})
		return
	}

	respondJSON(w, envelopeStatus(resp.StatusCode), ForwardResponse{
		Status:  resp.StatusCode,
		Headers: flattenHeader(resp.Header),
		Body:    string(resp.Body),
		Data:    resp.JSON,
		HTML:    resp.HTML,
	})
}

// envelopeStatus returns the status to send the envelope with. Upstream
// statuses that forbid a body are answered with 200; the envelope still
// carries the upstream status.
func envelopeStatus(upstream int) int {
	if upstream < http.StatusOK || upstream == http.StatusNoContent || upstream == http.StatusNotModified {
		return http.StatusOK
	}
	return upstream
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
