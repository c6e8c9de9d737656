package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rmacdonaldsmith/loghub-go/internal/zaplog"
)

func TestMiddleware_LogsRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	setup := NewTestServerSetup(t, Config{NoAuth: true}, WithLogger(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	setup.Server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/health", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestMiddleware_RequestLogsReachHub(t *testing.T) {
	setup := NewTestServerSetup(t, Config{NoAuth: true})
	logger := zap.New(zaplog.NewCore(setup.Hub, zapcore.InfoLevel))
	server := NewServer(setup.Hub, Config{NoAuth: true}, WithLogger(logger))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	events, err := setup.Hub.History(0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "request")
	assert.Contains(t, events[0].Message, `"path": "/api/v1/health"`)
}

func TestMiddleware_Recovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	m := NewMiddleware(NewJWTAuth("k", 0), false, zap.New(core), nil)

	handler := m.Recovery(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("handler panicked").Len())
}

func TestMiddleware_NoAuthSetsDevClaims(t *testing.T) {
	m := NewMiddleware(NewJWTAuth("k", 0), true, nil, nil)

	var clientID string
	handler := m.AuthRequired(func(w http.ResponseWriter, r *http.Request) {
		clientID = GetClientID(r)
		assert.False(t, IsAdmin(r))
		assert.NotNil(t, GetClaims(r))
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "dev-client", clientID)
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: inner, status: http.StatusOK}

	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	rec.Flush()

	assert.Equal(t, http.StatusTeapot, rec.status)
	assert.Same(t, inner, rec.Unwrap())
	assert.True(t, inner.Flushed)
}
