package webhook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/mattjoyce/oneguard-gw/internal/config"
	"github.com/mattjoyce/oneguard-gw/internal/signature"
)

var timestampPattern = regexp.MustCompile(`^[0-9]+$`)

// GateConfig configures a Gate.
type GateConfig struct {
	Secret          config.Secret
	SignatureHeader string
	TimestampHeader string

	// TimestampBinding requires TimestampHeader and signs "<ts>.<body>".
	// The timestamp is not checked against the clock.
	TimestampBinding bool
}

// Gate decides whether an inbound webhook is authentic. It holds no
// per-request state and is safe for concurrent use.
type Gate struct {
	secret          []byte
	signatureHeader string
	timestampHeader string
	bindTimestamp   bool
	logger          *slog.Logger
}

// NewGate creates a Gate. Empty header names fall back to the config defaults.
func NewGate(cfg GateConfig, logger *slog.Logger) *Gate {
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = config.DefaultSignatureHeader
	}
	if cfg.TimestampHeader == "" {
		cfg.TimestampHeader = config.DefaultTimestampHeader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		secret:          cfg.Secret.Bytes(),
		signatureHeader: cfg.SignatureHeader,
		timestampHeader: cfg.TimestampHeader,
		bindTimestamp:   cfg.TimestampBinding,
		logger:          logger,
	}
}

// SignatureHeader returns the header the gate reads the signature from.
func (g *Gate) SignatureHeader() string { return g.signatureHeader }

// TimestampHeader returns the timestamp header name.
func (g *Gate) TimestampHeader() string { return g.timestampHeader }

// TimestampBinding reports whether the timestamp is part of the signed message.
func (g *Gate) TimestampBinding() bool { return g.bindTimestamp }

// Handle runs the verification chain over one delivery. Rejections are
// reported in the Outcome; the error is reserved for internal faults.
func (g *Gate) Handle(headers http.Header, body []byte) (Outcome, error) {
	return g.handle(g.logger, headers, body)
}

func (g *Gate) handle(logger *slog.Logger, headers http.Header, body []byte) (Outcome, error) {
	sig := headers.Get(g.signatureHeader)
	logger.Debug("webhook step", "step", "signature_header", "header", g.signatureHeader, "present", sig != "")
	if sig == "" {
		return g.reject(logger, ReasonMissingSignature), nil
	}

	message := body
	if g.bindTimestamp {
		ts := headers.Get(g.timestampHeader)
		logger.Debug("webhook step", "step", "timestamp_header", "header", g.timestampHeader, "present", ts != "")
		if ts == "" {
			return g.reject(logger, ReasonMissingTimestamp), nil
		}
		if !timestampPattern.MatchString(ts) {
			return g.reject(logger, ReasonInvalidTimestamp), nil
		}
		message = signature.SignedMessage(ts, body)
	}

	logger.Debug("webhook step", "step", "read_body", "body_bytes", len(body), "signed_bytes", len(message))

	computed, err := signature.Sign(g.secret, message)
	if err != nil {
		return Outcome{}, fmt.Errorf("compute webhook signature: %w", err)
	}
	logger.Debug("webhook step", "step", "compute_signature", "computed", computed, "provided_len", len(sig))

	if !signature.Equal(computed, sig) {
		return g.reject(logger, ReasonSignatureMismatch), nil
	}
	logger.Debug("webhook step", "step", "signature_verified")

	// Parsing happens only after the signature has been accepted. Only a
	// zero-length body skips parsing; whitespace alone is not JSON.
	var payload any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Warn("webhook rejected",
				"reason", ReasonInvalidJSON,
				"body_bytes", len(body),
				"error", err,
			)
			return Outcome{Reason: ReasonInvalidJSON}, nil
		}
	}
	logger.Debug("webhook step", "step", "parse_body", "payload", payload)

	return Outcome{Payload: payload}, nil
}

func (g *Gate) reject(logger *slog.Logger, reason Reason) Outcome {
	logger.Warn("webhook rejected", "reason", reason)
	return Outcome{Reason: reason}
}
