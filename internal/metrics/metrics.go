// Package metrics exports hub and HTTP metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "loghub"

// Config controls the /metrics endpoint.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// SetDefaults fills in zero values
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
}

// Metrics implements loghub.Observer with Prometheus collectors and also
// records HTTP request metrics.
type Metrics struct {
	recorded         *prometheus.CounterVec
	historySkipped   prometheus.Counter
	broadcastSkipped prometheus.Counter
	delivered        prometheus.Counter
	pruned           prometheus.Counter
	panics           prometheus.Counter

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates the collectors. Nothing is registered until Register is called.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Metrics{
		recorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_recorded_total",
				Help:      "Total log events recorded, by level",
			},
			[]string{"level"},
		),
		historySkipped:   counter("history_skipped_total", "Appends skipped because the history was unavailable"),
		broadcastSkipped: counter("broadcast_skipped_total", "Broadcasts skipped because the subscriber registry was unavailable"),
		delivered:        counter("deliveries_total", "Lines delivered to subscribers"),
		pruned:           counter("subscribers_pruned_total", "Subscribers removed after a failed delivery"),
		panics:           counter("step_panics_total", "Panics recovered inside record"),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
}

// Register registers the collectors with reg. When an identical collector is
// already registered, m switches to the existing one so its counts are exported.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return errors.Join(
		register(reg, &m.recorded),
		register(reg, &m.historySkipped),
		register(reg, &m.broadcastSkipped),
		register(reg, &m.delivered),
		register(reg, &m.pruned),
		register(reg, &m.panics),
		register(reg, &m.requests),
		register(reg, &m.latency),
	)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			*c = existing
			return nil
		}
	}
	return fmt.Errorf("failed to register collector: %w", err)
}

// RegisterSnapshot registers gauges read from snapshot at scrape time.
func RegisterSnapshot(reg prometheus.Registerer, namespace string, snapshot func() loghub.Snapshot) error {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	boolGauge := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "history_length", Help: "Retained log events",
		}, func() float64 { return float64(snapshot().Length) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "history_capacity", Help: "Maximum retained log events",
		}, func() float64 { return float64(snapshot().Capacity) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "history_available", Help: "1 unless the history is poisoned",
		}, func() float64 { return boolGauge(snapshot().HistoryAvailable) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "subscribers", Help: "Registered subscribers",
		}, func() float64 { return float64(snapshot().Subscribers) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "subscribers_available", Help: "1 unless the subscriber registry is poisoned",
		}, func() float64 { return boolGauge(snapshot().SubscribersAvailable) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return fmt.Errorf("failed to register gauge: %w", err)
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(path, method, status string, seconds float64) {
	m.requests.WithLabelValues(path, method, status).Inc()
	m.latency.WithLabelValues(path, method).Observe(seconds)
}

func (m *Metrics) EventRecorded(level history.Level) {
	m.recorded.WithLabelValues(level.String()).Inc()
}

func (m *Metrics) HistorySkipped()   { m.historySkipped.Inc() }
func (m *Metrics) BroadcastSkipped() { m.broadcastSkipped.Inc() }
func (m *Metrics) StepPanicked()     { m.panics.Inc() }

func (m *Metrics) Delivered(n int) {
	m.delivered.Add(float64(n))
}

func (m *Metrics) SubscribersPruned(n int) {
	m.pruned.Add(float64(n))
}

var _ loghub.Observer = (*Metrics)(nil)
