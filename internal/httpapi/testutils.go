package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rmacdonaldsmith/loghub-go/internal/loghub"
)

// TestServerSetup holds common test dependencies
type TestServerSetup struct {
	Hub    *loghub.Hub
	Server *Server
	Auth   *JWTAuth
}

// NewTestServerSetup creates a hub and an HTTP server in front of it
func NewTestServerSetup(t *testing.T, config Config, opts ...Option) *TestServerSetup {
	t.Helper()

	hub, err := loghub.NewDefault(loghub.NewConfig().WithMaxRetainSize(100))
	if err != nil {
		t.Fatalf("Failed to create hub: %v", err)
	}

	if config.SecretKey == "" {
		config.SecretKey = "test-secret-key"
	}
	if config.KeepaliveInterval == 0 {
		config.KeepaliveInterval = 50 * time.Millisecond
	}

	server := NewServer(hub, config, opts...)
	return &TestServerSetup{
		Hub:    hub,
		Server: server,
		Auth:   server.jwtAuth,
	}
}

// GenerateTestToken creates a JWT token for testing
func (setup *TestServerSetup) GenerateTestToken(t *testing.T, clientID string, isAdmin bool) string {
	t.Helper()

	token, _, err := setup.Auth.GenerateToken(clientID, isAdmin)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	return token
}

// Do sends a request through the routed handler. A non-nil body is JSON encoded
// unless it is already a string.
func (setup *TestServerSetup) Do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	setup.Server.Handler().ServeHTTP(rec, req)
	return rec
}

// DecodeJSON decodes a recorded response body into v
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// StartHTTP serves the API on a real listener for streaming tests
func (setup *TestServerSetup) StartHTTP(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(setup.Server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// NewStreamRequest builds an authenticated SSE request
func NewStreamRequest(t *testing.T, url, token string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
