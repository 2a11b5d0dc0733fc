package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	flushTotal        *prometheus.CounterVec
	flushedBytesTotal prometheus.Counter
	bufferedBytes     prometheus.Gauge

	storeOpDuration *prometheus.HistogramVec
	storeOpTotal    *prometheus.CounterVec
	knownSessions   prometheus.Gauge

	prunedSessionsTotal *prometheus.CounterVec
	reportTotal         *prometheus.CounterVec
	reportBytes         prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			flushTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rageshake_flush_total",
					Help: "Total buffer flushes by status.",
				},
				[]string{"status"},
			),
			flushedBytesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "rageshake_flushed_bytes_total",
					Help: "Total log bytes moved from the buffer into the store.",
				},
			),
			bufferedBytes: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "rageshake_buffered_bytes",
					Help: "Log bytes left in the buffer after the last flush.",
				},
			),
			storeOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "rageshake_store_operation_duration_seconds",
					Help:    "Log store operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			storeOpTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rageshake_store_operation_total",
					Help: "Total log store operations by operation and status.",
				},
				[]string{"op", "status"},
			),
			knownSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "rageshake_known_sessions",
					Help: "Sessions found in the log store at the last listing.",
				},
			),
			prunedSessionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rageshake_pruned_sessions_total",
					Help: "Total sessions deleted from the log store by status.",
				},
				[]string{"status"},
			),
			reportTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rageshake_report_total",
					Help: "Total bug report submissions by status.",
				},
				[]string{"status"},
			),
			reportBytes: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "rageshake_report_log_bytes",
					Help:    "Log bytes carried by each submitted report.",
					Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
				},
			),
		}

		prometheus.MustRegister(
			m.flushTotal,
			m.flushedBytesTotal,
			m.bufferedBytes,
			m.storeOpDuration,
			m.storeOpTotal,
			m.knownSessions,
			m.prunedSessionsTotal,
			m.reportTotal,
			m.reportBytes,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func RecordFlush(bytes int, success bool) {
	m := getMetrics()
	m.flushTotal.WithLabelValues(statusLabel(success)).Inc()
	if success {
		m.flushedBytesTotal.Add(float64(bytes))
	}
}

func SetBufferedBytes(bytes int) {
	m := getMetrics()
	m.bufferedBytes.Set(float64(bytes))
}

func RecordStoreOperation(op string, duration time.Duration, success bool) {
	m := getMetrics()
	m.storeOpTotal.WithLabelValues(op, statusLabel(success)).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func SetKnownSessions(count int) {
	m := getMetrics()
	m.knownSessions.Set(float64(count))
}

func RecordPrunedSession(success bool) {
	m := getMetrics()
	m.prunedSessionsTotal.WithLabelValues(statusLabel(success)).Inc()
}

func RecordReport(logBytes int, success bool) {
	m := getMetrics()
	m.reportTotal.WithLabelValues(statusLabel(success)).Inc()
	m.reportBytes.Observe(float64(logBytes))
}
