package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

// APIKeyHeader carries the caller's key upstream.
const APIKeyHeader = "x-api-key"

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Endpoints holds the two upstream URLs.
type Endpoints struct {
	Production string
	Staging    string
}

// Select returns the staging URL for EnvironmentStaging and production for
// anything else.
func (e Endpoints) Select(env Environment) string {
	if Environment(strings.ToLower(strings.TrimSpace(string(env)))) == EnvironmentStaging {
		return e.Staging
	}
	return e.Production
}

// RawResponse is the upstream reply, kept as close to the wire as possible.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// JSON holds the parsed body when it is valid JSON and not HTML.
	JSON any
	// HTML is set when the upstream answered with an HTML page.
	HTML bool
}

// Client forwards verification requests. It performs no retries.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// NewClientWithHTTP wraps an existing http.Client.
func NewClientWithHTTP(hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: hc, logger: logger}
}

// Forward POSTs payload to endpoint with apiKey and returns whatever came
// back. Non-2xx statuses are not errors; only transport failures are.
func (c *Client) Forward(ctx context.Context, payload Payload, apiKey, endpoint string) (*RawResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode verification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read verification response: %w", err)
	}

	out := &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       raw,
		HTML:       looksLikeHTML(resp.Header.Get("Content-Type"), raw),
	}
	if !out.HTML && len(bytes.TrimSpace(raw)) > 0 {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			out.JSON = parsed
		}
	}

	c.logger.Info("verification forwarded",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_bytes", len(raw),
		"html", out.HTML,
	)
	return out, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "text/html" {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
