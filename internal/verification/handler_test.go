package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeForwarder records the last call and returns a canned reply.
type fakeForwarder struct {
	called   bool
	payload  Payload
	apiKey   string
	endpoint string
	resp     *RawResponse
	err      error
}

func (f *fakeForwarder) Forward(_ context.Context, payload Payload, apiKey, endpoint string) (*RawResponse, error) {
	f.called = true
	f.payload, f.apiKey, f.endpoint = payload, apiKey, endpoint
	return f.resp, f.err
}

var testEndpoints = Endpoints{Production: "https://prod.example/v1", Staging: "https://staging.example/v1"}

func serve(t *testing.T, f *fakeForwarder, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	NewHandler(f, testEndpoints, quietLogger()).ServeHTTP(rec, req)
	return rec
}

func TestHandler_ForwardsAndReshapes(t *testing.T) {
	f := &fakeForwarder{resp: &RawResponse{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"Content-Type": {"application/json"}, "X-Trace": {"a", "b"}},
		Body:       []byte(`{"id":"ver_9"}`),
		JSON:       map[string]any{"id": "ver_9"},
	}}

	rec := serve(t, f, `{"customerEmail":"a@b.c","customerName":" A ","environment":"staging"}`,
		http.Header{"X-Api-Key": {" key-9 "}})

	require.True(t, f.called)
	assert.Equal(t, "key-9", f.apiKey)
	assert.Equal(t, testEndpoints.Staging, f.endpoint)
	assert.Equal(t, "A", f.payload.CustomerName)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp ForwardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, `{"id":"ver_9"}`, resp.Body)
	assert.Equal(t, map[string]any{"id": "ver_9"}, resp.Data)
	assert.Equal(t, "a, b", resp.Headers["x-trace"])
	assert.False(t, resp.HTML)
}

func TestHandler_BodylessUpstreamStatusKeepsEnvelope(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotModified} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			f := &fakeForwarder{resp: &RawResponse{StatusCode: code}}

			rec := serve(t, f, `{"customerEmail":"a@b.c","customerName":"A","apiKey":"k"}`, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			var resp ForwardResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, code, resp.Status)
		})
	}
}

func TestHandler_DefaultsToProduction(t *testing.T) {
	f := &fakeForwarder{resp: &RawResponse{StatusCode: http.StatusOK}}

	rec := serve(t, f, `{"customerEmail":"a@b.c","customerName":"A","apiKey":"body-key"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testEndpoints.Production, f.endpoint)
	assert.Equal(t, "body-key", f.apiKey)
}

func TestHandler_ClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		header    http.Header
		wantError string
	}{
		{name: "invalid json", body: `{`, wantError: "invalid JSON body"},
		{name: "missing api key", body: `{"customerEmail":"a@b.c","customerName":"A"}`, wantError: ErrMissingAPIKey.Error()},
		{name: "missing customer", body: `{"customerEmail":"a@b.c"}`, header: http.Header{"X-Api-Key": {"k"}}, wantError: ErrMissingCustomer.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeForwarder{}
			rec := serve(t, f, tt.body, tt.header)

			assert.False(t, f.called)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestHandler_UpstreamFailure(t *testing.T) {
	f := &fakeForwarder{err: errors.New("verification request failed: connection refused")}

	rec := serve(t, f, `{"customerEmail":"a@b.c","customerName":"A"}`, http.Header{"X-Api-Key": {"k"}})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Verification request failed", resp.Error)
	assert.Contains(t, resp.Detail, "connection refused")
}

func TestHandler_UpstreamTimeout(t *testing.T) {
	f := &fakeForwarder{err: context.DeadlineExceeded}

	rec := serve(t, f, `{"customerEmail":"a@b.c","customerName":"A"}`, http.Header{"X-Api-Key": {"k"}})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
