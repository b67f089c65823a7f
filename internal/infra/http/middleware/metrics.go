package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	kommoRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kommo_requests_total",
			Help: "Total number of requests sent to the Kommo API",
		},
		[]string{"resource", "status"},
	)

	kommoRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kommo_retries_total",
			Help: "Total number of retried Kommo API requests",
		},
		[]string{"resource"},
	)

	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"mode"},
	)

	syncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Records handled by sync runs",
		},
		[]string{"entity", "outcome"},
	)

	syncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync run",
		},
		[]string{"mode"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordKommoRequest(resource, status string) {
	kommoRequests.WithLabelValues(resource, status).Inc()
}

func RecordKommoRetry(resource string) {
	kommoRetries.WithLabelValues(resource).Inc()
}

// RecordSyncRun tracks one finished run. finishedAt is only used on success.
func RecordSyncRun(mode, status string, seconds float64, finishedAt time.Time) {
	syncRuns.WithLabelValues(mode, status).Inc()
	syncDuration.WithLabelValues(mode).Observe(seconds)
	if status == "SUCCEEDED" {
		syncLastSuccess.WithLabelValues(mode).Set(float64(finishedAt.Unix()))
	}
}

// RecordSyncRecords adds n records of entity with the given outcome (written, orphan, duplicate).
func RecordSyncRecords(entity, outcome string, n int) {
	if n <= 0 {
		return
	}
	syncRecords.WithLabelValues(entity, outcome).Add(float64(n))
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
