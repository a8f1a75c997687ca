package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/oneguard-gw/internal/config"
	"github.com/mattjoyce/oneguard-gw/internal/signature"
	"github.com/mattjoyce/oneguard-gw/internal/webhook"
	"github.com/mattjoyce/oneguard-gw/internal/webhook/mocks"
)

const secret = "whsec_test"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHandler(receiver webhook.Receiver, maxBody int64) *webhook.Handler {
	gate := webhook.NewGate(webhook.GateConfig{Secret: config.NewSecret(secret)}, quietLogger())
	return webhook.NewHandler(gate, receiver, maxBody, quietLogger())
}

func signedRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	sig, err := signature.Sign([]byte(secret), body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set("x-oneguard-signature", sig)
	return req
}

func TestHandler_AcceptedHandsDeliveryToReceiver(t *testing.T) {
	ctrl := gomock.NewController(t)
	receiver := mocks.NewMockReceiver(ctrl)
	body := []byte(`{"a":1}`)

	receiver.EXPECT().Receive(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d webhook.Delivery) error {
		assert.Equal(t, map[string]any{"a": float64(1)}, d.Payload)
		assert.JSONEq(t, string(body), string(d.Body))
		assert.False(t, d.ReceivedAt.IsZero())
		return nil
	})

	rec := httptest.NewRecorder()
	newHandler(receiver, 0).ServeHTTP(rec, signedRequest(t, body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp webhook.AckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Received)
}

func TestHandler_ReceiverErrorStillAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	receiver := mocks.NewMockReceiver(ctrl)
	receiver.EXPECT().Receive(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	rec := httptest.NewRecorder()
	newHandler(receiver, 0).ServeHTTP(rec, signedRequest(t, []byte(`{"a":1}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_NilReceiver(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil, 0).ServeHTTP(rec, signedRequest(t, []byte(`{"a":1}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantReason webhook.Reason
		wantError  string
	}{
		{
			name: "missing signature",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"a":1}`))
			},
			wantStatus: http.StatusBadRequest,
			wantReason: webhook.ReasonMissingSignature,
			wantError:  "signature header is required",
		},
		{
			name: "signature mismatch",
			req: func(t *testing.T) *http.Request {
				req := signedRequest(t, []byte(`{"a":1}`))
				req.Body = io.NopCloser(strings.NewReader(`{"a":2}`))
				return req
			},
			wantStatus: http.StatusUnauthorized,
			wantReason: webhook.ReasonSignatureMismatch,
			wantError:  "invalid signature",
		},
		{
			name: "invalid json after valid signature",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, []byte("not json"))
			},
			wantStatus: http.StatusBadRequest,
			wantReason: webhook.ReasonInvalidJSON,
			wantError:  "body is not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			receiver := mocks.NewMockReceiver(ctrl)
			// No EXPECT: any Receive call fails the test.

			rec := httptest.NewRecorder()
			newHandler(receiver, 0).ServeHTTP(rec, tt.req(t))

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp webhook.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestHandler_MismatchDoesNotLeakExpectedSignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	expected, err := signature.Sign([]byte(secret), body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set("x-oneguard-signature", strings.Repeat("a", signature.HexLength))
	rec := httptest.NewRecorder()
	newHandler(nil, 0).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), expected)
	assert.NotContains(t, rec.Body.String(), secret)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2048)

	rec := httptest.NewRecorder()
	newHandler(nil, 1024).ServeHTTP(rec, signedRequest(t, body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_BodyAtLimit(t *testing.T) {
	body := []byte(`"` + strings.Repeat("a", 1022) + `"`)
	require.Len(t, body, 1024)

	rec := httptest.NewRecorder()
	newHandler(nil, 1024).ServeHTTP(rec, signedRequest(t, body))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_HugeLimitStillReadsBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	receiver := mocks.NewMockReceiver(ctrl)
	body := []byte(`{"a":1}`)

	receiver.EXPECT().Receive(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d webhook.Delivery) error {
		assert.Equal(t, string(body), string(d.Body))
		return nil
	})

	rec := httptest.NewRecorder()
	newHandler(receiver, math.MaxInt64).ServeHTTP(rec, signedRequest(t, body))

	assert.Equal(t, http.StatusOK, rec.Code)
}
