package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// ErrEmptySecretKey is returned when auth is enabled without a signing key
var ErrEmptySecretKey = errors.New("secret key is required unless auth is disabled")

// Config holds server configuration
type Config struct {
	ListenAddress     string        `yaml:"listen"`
	SecretKey         string        `yaml:"secret_key"`
	NoAuth            bool          `yaml:"no_auth"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	TokenTTL          time.Duration `yaml:"token_ttl"`

	// KeepaliveInterval is the gap between ": ping" comments on idle streams
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	// SubscriberBuffer is the per-stream buffer; a stream that falls this far behind is dropped
	SubscriberBuffer int   `yaml:"subscriber_buffer"`
	MaxIngestBytes   int64 `yaml:"max_ingest_bytes"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SetDefaults fills in zero values
func (c *Config) SetDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = 15 * time.Second
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = 256
	}
	if c.MaxIngestBytes == 0 {
		c.MaxIngestBytes = 1 << 20
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if !c.NoAuth && c.SecretKey == "" {
		return ErrEmptySecretKey
	}
	return nil
}

// Option configures optional server collaborators
type Option func(*Server)

// WithLogger sets the request and server logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request metrics with observer and mounts handler at path
func WithMetrics(observer RequestObserver, path string, handler http.Handler) Option {
	return func(s *Server) {
		s.observer = observer
		s.metricsPath = path
		s.metricsHandler = handler
	}
}

// Server represents the HTTP API server
type Server struct {
	hub        loghub.Hub
	config     Config
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	logger     *zap.Logger

	observer       RequestObserver
	metricsPath    string
	metricsHandler http.Handler

	// listLogs serves history gzip-compressed when the client accepts it
	listLogs http.Handler
}

// NewServer creates a new HTTP API server
func NewServer(hub loghub.Hub, config Config, opts ...Option) *Server {
	config.SetDefaults()

	s := &Server{
		hub:    hub,
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.jwtAuth = NewJWTAuth(config.SecretKey, config.TokenTTL)
	s.handlers = NewHandlers(hub, s.jwtAuth, config, s.logger)
	s.middleware = NewMiddleware(s.jwtAuth, config.NoAuth, s.logger, s.observer)
	s.listLogs = gzhttp.GzipHandler(http.HandlerFunc(s.handlers.ListLogs))

	s.server = &http.Server{
		Addr:           config.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Shutdown ends open streams instead of waiting for their clients to leave
	base, cancel := context.WithCancel(context.Background())
	s.server.BaseContext = func(net.Listener) context.Context { return base }
	s.server.RegisterOnShutdown(cancel)
	return s
}

// Handler returns the routed handler, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("http api listening", zap.String("addr", s.config.ListenAddress), zap.Bool("no_auth", s.config.NoAuth))
	return s.server.ListenAndServe()
}

// Serve accepts connections on l
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("http api listening", zap.String("addr", l.Addr().String()), zap.Bool("no_auth", s.config.NoAuth))
	return s.server.Serve(l)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.RequestID(
				s.middleware.Logging(
					s.middleware.CORS(
						s.middleware.ContentType(handler)))))
	}

	// Authentication endpoints (no auth required)
	mux.Handle("/api/v1/auth/login", withMiddleware(s.handlers.Login))

	// Log endpoints (auth required)
	mux.Handle("/api/v1/logs", withMiddleware(s.middleware.AuthRequired(s.handleLogs)))
	mux.Handle("/api/v1/logs/stream", withMiddleware(s.middleware.AuthRequired(s.methodGET(s.handlers.StreamLogs))))
	mux.Handle("/api/v1/debug/hub", withMiddleware(s.middleware.AuthRequired(s.methodGET(s.handlers.DebugHub))))

	// Admin endpoints (admin auth required)
	mux.Handle("/api/v1/admin/stats", withMiddleware(s.middleware.AdminRequired(s.methodGET(s.handlers.AdminGetStats))))
	mux.Handle("/api/v1/admin/recover", withMiddleware(s.middleware.AdminRequired(s.handlers.AdminRecover)))

	// Health endpoint (no auth required)
	mux.Handle("/api/v1/health", withMiddleware(s.handlers.Health))

	if s.metricsHandler != nil {
		mux.Handle(s.metricsPath, s.metricsHandler)
	}

	// Root endpoint with API info
	mux.Handle("/", withMiddleware(s.handleRoot))

	return mux
}

// Route handlers that dispatch based on HTTP method

// handleLogs routes log requests based on HTTP method
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listLogs.ServeHTTP(w, r)
	case http.MethodPost:
		s.handlers.IngestLogs(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) methodGET(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, "Not found", http.StatusNotFound)
		return
	}

	endpoints := map[string]interface{}{
		"auth": map[string]string{
			"login": "POST /api/v1/auth/login",
		},
		"logs": map[string]string{
			"history": "GET /api/v1/logs?limit={n}",
			"ingest":  "POST /api/v1/logs",
			"stream":  "GET /api/v1/logs/stream?replay={true|false}",
		},
		"debug": map[string]string{
			"hub": "GET /api/v1/debug/hub",
		},
		"admin": map[string]string{
			"stats":   "GET /api/v1/admin/stats",
			"recover": "POST /api/v1/admin/recover",
		},
		"health": "GET /api/v1/health",
	}
	if s.metricsHandler != nil {
		endpoints["metrics"] = "GET " + s.metricsPath
	}

	writeJSON(w, map[string]interface{}{
		"service":        "loghub HTTP API",
		"version":        "1.0.0",
		"description":    "Recent log history and live log tail",
		"endpoints":      endpoints,
		"authentication": "Bearer JWT token required for most endpoints",
	}, http.StatusOK)
}
