package httpclient

import (
	"time"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the loghub HTTP API (e.g., "http://localhost:8080")
	ServerURL string

	// ClientID is the identifier for this client
	ClientID string

	// Password is sent on login; the server checks it only for the admin client
	Password string

	// Timeout for HTTP requests. Streams are not subject to it.
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// AuthRequest represents a login request
type AuthRequest struct {
	ClientID string `json:"clientId"`
	Password string `json:"password,omitempty"`
}

// AuthResponse represents the response from authentication
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IngestEntry is one log line sent to the server
type IngestEntry struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

// IngestResponse reports how many entries the server recorded
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// LogsResponse is the retained history
type LogsResponse struct {
	Events   []history.Event `json:"events"`
	Count    int             `json:"count"`
	Capacity int             `json:"capacity"`
}

// StreamMessage is one log line received from the live stream
type StreamMessage struct {
	Sequence int64  `json:"sequence"`
	Message  string `json:"message"`
	Level    string `json:"level,omitempty"`
	Replayed bool   `json:"replayed,omitempty"`
}

// DebugResponse is the hub debug view
type DebugResponse struct {
	View string `json:"view"`
	// HistoryLength is a number, or "unavailable" when the history is poisoned
	HistoryLength interface{} `json:"historyLength"`
}

// AdminStatsResponse represents hub statistics
type AdminStatsResponse struct {
	Stats    loghub.Stats    `json:"stats"`
	Snapshot loghub.Snapshot `json:"snapshot"`
}

// RecoverResponse is returned after clearing poisoned state
type RecoverResponse struct {
	Recovered bool            `json:"recovered"`
	Snapshot  loghub.Snapshot `json:"snapshot"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy              bool   `json:"healthy"`
	HistoryAvailable     bool   `json:"historyAvailable"`
	SubscribersAvailable bool   `json:"subscribersAvailable"`
	HistoryLength        int    `json:"historyLength"`
	Subscribers          int    `json:"subscribers"`
	Message              string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
