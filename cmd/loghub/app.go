package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/loghub-go/internal/config"
	"github.com/rmacdonaldsmith/loghub-go/internal/console"
	"github.com/rmacdonaldsmith/loghub-go/internal/httpapi"
	"github.com/rmacdonaldsmith/loghub-go/internal/loghub"
	"github.com/rmacdonaldsmith/loghub-go/internal/metrics"
	"github.com/rmacdonaldsmith/loghub-go/internal/zaplog"
)

const shutdownTimeout = 30 * time.Second

// app owns the hub and every surface serving it
type app struct {
	config  *config.Config
	hub     *loghub.Hub
	logger  *zap.Logger
	http    *httpapi.Server
	console *console.Server

	httpListener    net.Listener
	consoleListener net.Listener
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{config: cfg}

	var opts []loghub.Option
	var m *metrics.Metrics
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		registry = prometheus.NewRegistry()
		if err := m.Register(registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, loghub.WithObserver(m))
	}

	hub, err := loghub.NewDefault(&cfg.Hub, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create hub: %w", err)
	}
	a.hub = hub

	// The server's own logs land in the hub, so they show up in history and live tails
	logger, err := zaplog.New(&cfg.Logging, hub)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger.Named(appName)

	httpOpts := []httpapi.Option{httpapi.WithLogger(a.logger)}
	if m != nil {
		if err := metrics.RegisterSnapshot(registry, cfg.Metrics.Namespace, hub.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to register snapshot metrics: %w", err)
		}
		httpOpts = append(httpOpts, httpapi.WithMetrics(m, cfg.Metrics.Path, metrics.Handler(registry)))
	}
	a.http = httpapi.NewServer(hub, cfg.HTTP, httpOpts...)

	if cfg.GRPC.Enabled {
		a.console = console.NewServer(hub, cfg.GRPC, a.logger)
	}
	return a, nil
}

// listen binds every enabled surface
func (a *app) listen() error {
	l, err := net.Listen("tcp", a.config.HTTP.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.HTTP.ListenAddress, err)
	}
	a.httpListener = l

	if a.console != nil {
		cl, err := net.Listen("tcp", a.config.GRPC.ListenAddress)
		if err != nil {
			_ = l.Close()
			return fmt.Errorf("failed to listen on %s: %w", a.config.GRPC.ListenAddress, err)
		}
		a.consoleListener = cl
	}
	return nil
}

func (a *app) run(ctx context.Context) error {
	defer zaplog.Sync(a.logger)

	if a.httpListener == nil {
		if err := a.listen(); err != nil {
			return err
		}
	}

	a.logger.Info("starting",
		zap.String("version", appVersion),
		zap.Int("max_retain_size", a.config.Hub.MaxRetainSize),
		zap.Bool("grpc", a.console != nil),
		zap.Bool("metrics", a.config.Metrics.Enabled))

	errs := make(chan error, 2)
	go func() {
		if err := a.http.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http api: %w", err)
		}
	}()
	if a.console != nil {
		go func() {
			if err := a.console.Serve(a.consoleListener); err != nil {
				errs <- fmt.Errorf("grpc console: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case runErr = <-errs:
		a.logger.Error("listener failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.console != nil {
		a.console.Stop(shutdownCtx)
	}
	if err := a.http.Stop(shutdownCtx); err != nil {
		a.logger.Warn("http api did not stop cleanly", zap.Error(err))
	}

	a.logger.Info("stopped", zap.Any("stats", a.hub.Stats()))
	return runErr
}
