package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{ServerURL: server.URL, ClientID: "test-client"})
	require.NoError(t, err)
	client.SetToken("test-token")
	return client
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClient(t *testing.T) {
	t.Run("valid_config", func(t *testing.T) {
		client, err := NewClient(Config{ServerURL: "http://localhost:8080", ClientID: "test-client"})
		require.NoError(t, err)
		assert.Equal(t, "test-client", client.config.ClientID)
		assert.Equal(t, 30*time.Second, client.config.Timeout)
		assert.False(t, client.IsAuthenticated())
	})

	t.Run("missing_server_url", func(t *testing.T) {
		client, err := NewClient(Config{ClientID: "test-client"})
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "ServerURL is required")
	})

	t.Run("missing_client_id", func(t *testing.T) {
		client, err := NewClient(Config{ServerURL: "http://localhost:8080"})
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "ClientID is required")
	})

	t.Run("invalid_server_url", func(t *testing.T) {
		client, err := NewClient(Config{ServerURL: "://invalid-url", ClientID: "test-client"})
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "invalid ServerURL")
	})
}

func TestClient_Authenticate(t *testing.T) {
	t.Run("successful_authentication", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req AuthRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "admin", req.ClientID)
			assert.Equal(t, "hunter2", req.Password)

			writeJSON(w, http.StatusOK, AuthResponse{Token: "jwt-token", ClientID: "admin", IsAdmin: true})
		}))
		defer server.Close()

		client, err := NewClient(Config{ServerURL: server.URL, ClientID: "admin", Password: "hunter2"})
		require.NoError(t, err)

		resp, err := client.Authenticate(context.Background())
		require.NoError(t, err)
		assert.True(t, resp.IsAdmin)
		assert.True(t, client.IsAuthenticated())
		assert.Equal(t, "jwt-token", client.GetToken())
	})

	t.Run("authentication_failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "Invalid password", Code: 401})
		}))
		defer server.Close()

		client, err := NewClient(Config{ServerURL: server.URL, ClientID: "admin"})
		require.NoError(t, err)

		_, err = client.Authenticate(context.Background())
		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid password", apiErr.Message)
		assert.False(t, client.IsAuthenticated())
	})
}

func TestClient_RequiresToken(t *testing.T) {
	client, err := NewClient(Config{ServerURL: "http://localhost:8080", ClientID: "test-client"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.History(ctx, 0)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.Ingest(ctx, IngestEntry{Message: "x"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.Debug(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.AdminGetStats(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.AdminRecover(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_History(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/logs", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, LogsResponse{
			Events: []history.Event{
				history.NewEvent(history.Info, "b"),
				history.NewEvent(history.Error, "c"),
			},
			Count:    2,
			Capacity: 3,
		})
	})

	resp, err := client.History(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, history.Error, resp.Events[1].Level)
	assert.Equal(t, "c", resp.Events[1].Message)
}

func TestClient_Ingest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/logs", r.URL.Path)

		var entries []IngestEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&entries))
		assert.Equal(t, []IngestEntry{{Level: "WARN", Message: "disk low"}, {Message: "plain"}}, entries)

		writeJSON(w, http.StatusAccepted, IngestResponse{Accepted: len(entries)})
	})

	resp, err := client.Ingest(context.Background(), IngestEntry{Level: "WARN", Message: "disk low"}, IngestEntry{Message: "plain"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Accepted)

	_, err = client.Ingest(context.Background())
	assert.ErrorContains(t, err, "no log entries")
}

func TestClient_Debug(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/debug/hub", r.URL.Path)
		writeJSON(w, http.StatusOK, DebugResponse{View: "Hub{history: <poisoned>}", HistoryLength: "unavailable"})
	})

	resp, err := client.Debug(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hub{history: <poisoned>}", resp.View)
	assert.Equal(t, "unavailable", resp.HistoryLength)
}

func TestClient_GetHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, HealthResponse{Healthy: true, HistoryAvailable: true, SubscribersAvailable: true, Message: "ok"})
		})

		resp, err := client.GetHealth(context.Background())
		require.NoError(t, err)
		assert.True(t, resp.Healthy)
	})

	t.Run("unhealthy_still_decoded", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{SubscribersAvailable: true, Message: "hub state is poisoned"})
		})

		resp, err := client.GetHealth(context.Background())
		require.NoError(t, err)
		assert.False(t, resp.Healthy)
		assert.False(t, resp.HistoryAvailable)
		assert.Equal(t, "hub state is poisoned", resp.Message)
	})

	t.Run("server_error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := client.GetHealth(context.Background())
		assert.ErrorContains(t, err, "API error (500): boom")
	})
}

func TestClient_Admin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/admin/stats":
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, AdminStatsResponse{
				Stats:    loghub.Stats{Recorded: 4, Pruned: 1},
				Snapshot: loghub.Snapshot{HistoryAvailable: true, Length: 3, Capacity: 3, SubscribersAvailable: true},
			})
		case "/api/v1/admin/recover":
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(w, http.StatusOK, RecoverResponse{Recovered: true, Snapshot: loghub.Snapshot{HistoryAvailable: true}})
		default:
			http.NotFound(w, r)
		}
	})

	stats, err := client.AdminGetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.Stats.Recorded)
	assert.Equal(t, 3, stats.Snapshot.Length)

	rec, err := client.AdminRecover(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Recovered)
}

func TestClient_AdminForbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Forbidden", Message: "Admin privileges required", Code: 403})
	})

	_, err := client.AdminGetStats(context.Background())
	assert.ErrorContains(t, err, "Admin privileges required")
}
