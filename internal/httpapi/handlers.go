package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/loghub-go/internal/broadcast"
	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	hub      loghub.Hub
	jwtAuth  *JWTAuth
	config   Config
	logger   *zap.Logger
	parsers  fastjson.ParserPool
	validate *validator.Validate
}

// NewHandlers creates a new handlers instance
func NewHandlers(hub loghub.Hub, jwtAuth *JWTAuth, config Config, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		hub:      hub,
		jwtAuth:  jwtAuth,
		config:   config,
		logger:   logger,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := history.ParseLevel(fl.Field().String())
		return err == nil
	})
	return v
}

// Auth endpoints

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := validateJSON(r); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateAuthRequest(&req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	isAdmin := req.ClientID == AdminClientID
	if isAdmin && h.config.AdminPasswordHash != "" {
		if err := CheckPassword(h.config.AdminPasswordHash, req.Password); err != nil {
			h.logger.Warn("admin login rejected", zap.String("request_id", GetRequestID(r)))
			writeError(w, err.Error(), http.StatusUnauthorized)
			return
		}
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID, isAdmin)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, AuthResponse{
		Token:     token,
		ClientID:  req.ClientID,
		IsAdmin:   isAdmin,
		ExpiresAt: expiresAt,
	}, http.StatusOK)
}

// Log endpoints

// ListLogs handles GET /api/v1/logs?limit=N
func (h *Handlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.hub.History(limit)
	if err != nil {
		writeError(w, "History unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, LogsResponse{
		Events:   events,
		Count:    len(events),
		Capacity: h.hub.Snapshot().Capacity,
	}, http.StatusOK)
}

// IngestLogs handles POST /api/v1/logs with one entry object or an array of them.
// The batch is validated in full before anything is recorded.
func (h *Handlers) IngestLogs(w http.ResponseWriter, r *http.Request) {
	if err := validateJSON(r); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxIngestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	entries, err := h.parseIngest(body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, entry := range entries {
		level := history.Info
		if entry.Level != "" {
			level, _ = history.ParseLevel(entry.Level)
		}
		h.hub.Record(level, entry.Message)
	}

	writeJSON(w, IngestResponse{Accepted: len(entries)}, http.StatusAccepted)
}

func (h *Handlers) parseIngest(body []byte) ([]IngestEntry, error) {
	p := h.parsers.Get()
	defer h.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var values []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeArray:
		values, _ = v.Array()
	case fastjson.TypeObject:
		values = []*fastjson.Value{v}
	default:
		return nil, errors.New("body must be a log entry object or an array of them")
	}
	if len(values) == 0 {
		return nil, errors.New("no log entries supplied")
	}

	entries := make([]IngestEntry, 0, len(values))
	for i, val := range values {
		if val.Type() != fastjson.TypeObject {
			return nil, fmt.Errorf("entry %d: must be an object", i)
		}
		entry := IngestEntry{
			Level:   string(val.GetStringBytes("level")),
			Message: string(val.GetStringBytes("message")),
		}
		if entry.Message == "" {
			entry.Message = string(val.GetStringBytes("msg"))
		}
		if err := h.validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("entry %d: %s", i, describeValidation(err))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "loglevel":
			parts = append(parts, fmt.Sprintf("unknown level %q", fe.Value()))
		case "max":
			parts = append(parts, field+" is too long")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}

// StreamLogs handles GET /api/v1/logs/stream as Server-Sent Events.
// With replay=true the retained history is sent first, marked as replayed.
func (h *Handlers) StreamLogs(w http.ResponseWriter, r *http.Request) {
	replay := r.URL.Query().Get("replay") == "true"

	// Register before reading history so no line falls between the two
	sub := broadcast.NewChanSubscriber(h.config.SubscriberBuffer)
	if err := h.hub.AddSubscriber(sub); err != nil {
		writeError(w, "Live tail unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := &sseWriter{w: w, rc: rc}
	if err := stream.comment("connected " + sub.ID()); err != nil {
		return
	}

	if replay {
		events, err := h.hub.History(0)
		if err != nil {
			_ = stream.comment("history unavailable")
		}
		for _, event := range events {
			if err := stream.send(StreamMessage{
				Message:  event.Message,
				Level:    event.Level.String(),
				Replayed: true,
			}); err != nil {
				return
			}
		}
	}
	_ = rc.Flush()

	ticker := time.NewTicker(h.config.KeepaliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := stream.comment("ping"); err != nil {
				return
			}

		case line := <-sub.Messages():
			if err := stream.send(StreamMessage{Message: line}); err != nil {
				return
			}

		case <-sub.Done():
			// Dropped for falling behind: deliver what was buffered, then say why
		drain:
			for {
				select {
				case line := <-sub.Messages():
					if err := stream.send(StreamMessage{Message: line}); err != nil {
						return
					}
				default:
					break drain
				}
			}
			_ = stream.event("dropped", sub.Err().Error())
			return
		}
	}
}

// sseWriter writes Server-Sent Event frames and flushes after each one.
type sseWriter struct {
	w   io.Writer
	rc  *http.ResponseController
	seq int64
}

func (s *sseWriter) send(msg StreamMessage) error {
	s.seq++
	msg.Sequence = s.seq
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE message: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: log\ndata: %s\n\n", s.seq, data); err != nil {
		return err
	}
	return s.flush()
}

func (s *sseWriter) event(name, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.flush()
}

func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.flush()
}

func (s *sseWriter) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Diagnostics endpoints

// DebugHub handles GET /api/v1/debug/hub
func (h *Handlers) DebugHub(w http.ResponseWriter, r *http.Request) {
	resp := DebugResponse{View: fmt.Sprint(h.hub), HistoryLength: "unavailable"}
	if n, ok := h.hub.SnapshotLen(); ok {
		resp.HistoryLength = n
	}
	writeJSON(w, resp, http.StatusOK)
}

// AdminGetStats handles GET /api/v1/admin/stats
func (h *Handlers) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, AdminStatsResponse{
		Stats:    h.hub.Stats(),
		Snapshot: h.hub.Snapshot(),
	}, http.StatusOK)
}

// AdminRecover handles POST /api/v1/admin/recover
func (h *Handlers) AdminRecover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	before := h.hub.Snapshot()
	h.hub.Recover()
	after := h.hub.Snapshot()

	h.logger.Info("hub recovered",
		zap.String("client_id", GetClientID(r)),
		zap.Bool("history_was_available", before.HistoryAvailable),
		zap.Bool("subscribers_were_available", before.SubscribersAvailable),
	)

	writeJSON(w, RecoverResponse{
		Recovered: !before.Healthy() && after.Healthy(),
		Snapshot:  after,
	}, http.StatusOK)
}

// Health endpoint

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.hub.Snapshot()

	resp := HealthResponse{
		Healthy:              snap.Healthy(),
		HistoryAvailable:     snap.HistoryAvailable,
		SubscribersAvailable: snap.SubscribersAvailable,
		HistoryLength:        snap.Length,
		Subscribers:          snap.Subscribers,
		Message:              "ok",
	}

	statusCode := http.StatusOK
	if !resp.Healthy {
		statusCode = http.StatusServiceUnavailable
		resp.Message = "hub state is poisoned; POST /api/v1/admin/recover to clear it"
	}

	writeJSON(w, resp, statusCode)
}

// Helper methods

// validateJSON validates that the request has valid JSON content-type
func validateJSON(r *http.Request) error {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return fmt.Errorf("Content-Type must be application/json")
	}
	return nil
}

// validateAuthRequest validates authentication request fields
func validateAuthRequest(req *AuthRequest) error {
	if req.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if len(req.ClientID) < 2 {
		return fmt.Errorf("clientId must be at least 2 characters")
	}
	return nil
}
