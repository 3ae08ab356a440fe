// Package testutil provides common helpers for handler and middleware
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestora/pkg/platform/httputil"
)

// NewJSONRequest creates an HTTP request with a JSON body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeEnvelope parses the uniform response envelope.
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "response is not an envelope: %s", rr.Body.String())
	return env
}

// AssertErrorEnvelope asserts status, the envelope error code, and that no
// data member leaked alongside the error.
func AssertErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	assert.Equal(t, expectedStatus, rr.Code, "unexpected status: %s", rr.Body.String())
	env := DecodeEnvelope(t, rr)
	require.NotNil(t, env.Error, "expected an error envelope")
	assert.Equal(t, expectedCode, env.Error.Code, "unexpected error code")
	assert.Nil(t, env.Data, "error envelopes must not carry data")
	assert.NotEmpty(t, env.Meta.RequestID, "envelopes must carry a request id")
}
