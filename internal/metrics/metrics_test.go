package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

func TestMetrics_ObserverCounters(t *testing.T) {
	m := New("")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.EventRecorded(history.Info)
	m.EventRecorded(history.Info)
	m.EventRecorded(history.Error)
	m.Delivered(3)
	m.SubscribersPruned(1)
	m.HistorySkipped()
	m.BroadcastSkipped()
	m.StepPanicked()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recorded.WithLabelValues("INFO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recorded.WithLabelValues("ERROR")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.delivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historySkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.broadcastSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.panics))
}

func TestMetrics_RegisterTwice(t *testing.T) {
	m := New("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.NoError(t, m.Register(reg))
}

func TestMetrics_SecondInstanceSharesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New("test")
	second := New("test")
	require.NoError(t, first.Register(reg))
	require.NoError(t, second.Register(reg))

	second.EventRecorded(history.Warn)
	second.Delivered(2)
	second.ObserveRequest("/api/v1/logs", "GET", "200", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(first.recorded.WithLabelValues("WARN")))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.delivered))

	count, err := testutil.GatherAndCount(reg, "test_events_recorded_total", "test_deliveries_total", "test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_RegisterConflictFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "test", Name: "deliveries_total", Help: "Conflicting help text",
	})))

	assert.Error(t, New("test").Register(reg))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New("test")
	m.ObserveRequest("/api/v1/logs", "GET", "200", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/logs", "GET", "200")))
}

func TestRegisterSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	snap := loghub.Snapshot{HistoryAvailable: true, Length: 7, Capacity: 10, Subscribers: 2}
	require.NoError(t, RegisterSnapshot(reg, "test", func() loghub.Snapshot { return snap }))

	expected := `
# HELP test_history_length Retained log events
# TYPE test_history_length gauge
test_history_length 7
# HELP test_subscribers_available 1 unless the subscriber registry is poisoned
# TYPE test_subscribers_available gauge
test_subscribers_available 0
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_history_length", "test_subscribers_available")
	assert.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m := New("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	m.EventRecorded(history.Warn)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_events_recorded_total{level="WARN"} 1`)
}
