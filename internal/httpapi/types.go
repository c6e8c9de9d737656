package httpapi

import (
	"time"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// Request/Response types for the HTTP API

// AuthRequest represents a login request
type AuthRequest struct {
	ClientID string `json:"clientId"`
	// Password is checked only for the admin client when a hash is configured
	Password string `json:"password,omitempty"`
}

// AuthResponse represents a login response
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IngestEntry is one log line submitted to POST /api/v1/logs
type IngestEntry struct {
	Level   string `validate:"omitempty,loglevel"`
	Message string `validate:"required,max=65536"`
}

// IngestResponse reports how many entries were recorded
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// LogsResponse is the retained history
type LogsResponse struct {
	Events   []history.Event `json:"events"`
	Count    int             `json:"count"`
	Capacity int             `json:"capacity"`
}

// StreamMessage is the data payload of one SSE log frame
type StreamMessage struct {
	Sequence int64  `json:"sequence"`
	Message  string `json:"message"`
	// Level and Replayed are set only for history entries replayed on connect
	Level    string `json:"level,omitempty"`
	Replayed bool   `json:"replayed,omitempty"`
}

// DebugResponse is the hub debug view
type DebugResponse struct {
	View string `json:"view"`
	// HistoryLength is the retained count, or the string "unavailable" when the history is poisoned
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
