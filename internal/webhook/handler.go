package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/oneguard-gw/internal/config"
	"github.com/mattjoyce/oneguard-gw/internal/log"
)

// Handler serves the webhook endpoint on top of a Gate.
type Handler struct {
	gate        *Gate
	receiver    Receiver
	maxBodySize int64
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler creates the HTTP handler. receiver may be nil, in which case
// accepted deliveries are only logged.
func NewHandler(gate *Gate, receiver Receiver, maxBodySize int64, logger *slog.Logger) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = config.DefaultMaxBodySize
	}
	if maxBodySize > config.MaxBodySizeLimit {
		maxBodySize = config.MaxBodySizeLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gate:        gate,
		receiver:    receiver,
		maxBodySize: maxBodySize,
		logger:      logger,
		now:         time.Now,
	}
}

// ServeHTTP handles incoming webhook POST requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	logger := log.WithRequest(h.logger, reqID)

	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
	if err != nil {
		logger.Error("failed to read webhook body", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read request body", "")
		return
	}
	if int64(len(body)) > h.maxBodySize {
		logger.Warn("webhook body too large", "limit", h.maxBodySize)
		h.respondError(w, http.StatusRequestEntityTooLarge, "payload too large", "")
		return
	}

	outcome, err := h.gate.handle(logger, r.Header, body)
	if err != nil {
		logger.Error("webhook verification failed internally", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	if !outcome.Accepted() {
		h.respondError(w, outcome.Reason.Status(), outcome.Err().Error(), outcome.Reason)
		return
	}

	logger.Info("webhook received", "body_bytes", len(body), "payload", outcome.Payload)

	if h.receiver != nil {
		d := Delivery{
			RequestID:  reqID,
			Body:       json.RawMessage(body),
			Payload:    outcome.Payload,
			ReceivedAt: h.now().UTC(),
		}
		// The sender has nothing to retry here; processing failures stay on our side.
		if err := h.receiver.Receive(ctx, d); err != nil {
			logger.Error("webhook receiver failed", "error", err)
		}
	}

	h.respondJSON(w, http.StatusOK, AckResponse{Received: true})
}

// respondJSON sends a JSON response.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string, reason Reason) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Reason: reason})
}
