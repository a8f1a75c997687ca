// Package verification forwards customer verification requests to the
// OneGuard public API and hands the upstream response back unchanged.
package verification

import (
	"encoding/json"
	"errors"
	"strings"
)

// Environment selects the upstream base URL.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key (provide x-api-key)")
	ErrMissingCustomer = errors.New("customerEmail and customerName are required")
)

// Request is the inbound body accepted by the proxy endpoint.
type Request struct {
	OrderID         json.RawMessage `json:"orderId,omitempty"`
	OrderName       *string         `json:"orderName,omitempty"`
	OrderTimestamp  *string         `json:"orderTimestamp,omitempty"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerName    string          `json:"customerName"`
	CustomerAddress *string         `json:"customerAddress,omitempty"`
	OrderPublicURL  *string         `json:"orderPublicUrl,omitempty"`
	CustomerLocale  *string         `json:"customerLocale,omitempty"`
	SendInvite      *bool           `json:"sendInvite,omitempty"`
	TestMode        *bool           `json:"testMode,omitempty"`

	// Proxy-only fields, never forwarded.
	APIKey      string      `json:"apiKey,omitempty"`
	Environment Environment `json:"environment,omitempty"`
}

// Payload is the normalised body sent upstream.
type Payload struct {
	OrderID         json.RawMessage `json:"orderId,omitempty"`
	OrderName       string          `json:"orderName,omitempty"`
	OrderTimestamp  string          `json:"orderTimestamp,omitempty"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerName    string          `json:"customerName"`
	CustomerAddress string          `json:"customerAddress,omitempty"`
	OrderPublicURL  string          `json:"orderPublicUrl,omitempty"`
	CustomerLocale  string          `json:"customerLocale,omitempty"`
	SendInvite      bool            `json:"sendInvite"`
	TestMode        bool            `json:"testMode"`
}

// ResolveAPIKey picks the header key over the body key, trimmed.
func ResolveAPIKey(header string, req *Request) (string, error) {
	key := strings.TrimSpace(header)
	if key == "" && req != nil {
		key = strings.TrimSpace(req.APIKey)
	}
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Normalize trims every string, drops empty optional fields and an empty
// orderId, and defaults the flags to false.
func Normalize(req Request) (Payload, error) {
	p := Payload{
		OrderID:         normalizeOrderID(req.OrderID),
		OrderName:       trimmed(req.OrderName),
		OrderTimestamp:  trimmed(req.OrderTimestamp),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerAddress: trimmed(req.CustomerAddress),
		OrderPublicURL:  trimmed(req.OrderPublicURL),
		CustomerLocale:  trimmed(req.CustomerLocale),
		SendInvite:      req.SendInvite != nil && *req.SendInvite,
		TestMode:        req.TestMode != nil && *req.TestMode,
	}
	if p.CustomerEmail == "" || p.CustomerName == "" {
		return Payload{}, ErrMissingCustomer
	}
	return p, nil
}

// normalizeOrderID keeps numbers and non-empty strings verbatim and drops
// null or "".
func normalizeOrderID(raw json.RawMessage) json.RawMessage {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return nil
	}
	return json.RawMessage(s)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
