package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/mock_receiver.go -package=mocks github.com/mattjoyce/oneguard-gw/internal/webhook Receiver

// Reason is the closed set of rejection causes.
type Reason string

const (
	ReasonMissingSignature  Reason = "missing_signature"
	ReasonMissingTimestamp  Reason = "missing_timestamp"
	ReasonInvalidTimestamp  Reason = "invalid_timestamp"
	ReasonSignatureMismatch Reason = "signature_mismatch"
	ReasonInvalidJSON       Reason = "invalid_json"
)

var (
	ErrMissingSignature  = errors.New("signature header is required")
	ErrMissingTimestamp  = errors.New("timestamp header is required")
	ErrInvalidTimestamp  = errors.New("timestamp header must be decimal digits")
	ErrSignatureMismatch = errors.New("invalid signature")
	ErrInvalidJSON       = errors.New("body is not valid JSON")
)

// Err returns the sentinel error for r, or nil for an unknown reason.
func (r Reason) Err() error {
	switch r {
	case ReasonMissingSignature:
		return ErrMissingSignature
	case ReasonMissingTimestamp:
		return ErrMissingTimestamp
	case ReasonInvalidTimestamp:
		return ErrInvalidTimestamp
	case ReasonSignatureMismatch:
		return ErrSignatureMismatch
	case ReasonInvalidJSON:
		return ErrInvalidJSON
	}
	return nil
}

// Status maps r to the HTTP status returned to the sender.
func (r Reason) Status() int {
	if r == ReasonSignatureMismatch {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// Outcome is the result of one pass through the gate. A zero Reason means
// the delivery was accepted and Payload holds the parsed body (nil for an
// empty body).
type Outcome struct {
	Reason  Reason
	Payload any
}

// Accepted reports whether the delivery passed every check.
func (o Outcome) Accepted() bool { return o.Reason == "" }

// Err returns the rejection as a sentinel error, nil when accepted.
func (o Outcome) Err() error { return o.Reason.Err() }

// Delivery is an accepted webhook handed to a Receiver.
type Delivery struct {
	RequestID  string
	Body       json.RawMessage
	Payload    any
	ReceivedAt time.Time
}

// Receiver consumes accepted deliveries. What happens next is up to it.
type Receiver interface {
	Receive(ctx context.Context, d Delivery) error
}

// AckResponse is the JSON response for accepted deliveries.
type AckResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason Reason `json:"reason,omitempty"`
}
