// Package metrics holds the Prometheus instruments shared by the CLI and the
// HTTP server. Each Metrics value owns its registry, so several can coexist
// in one process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/fitfix/pkg/repair"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	ModeFix   = "fix"
	ModeCheck = "check"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	filesTotal        *prometheus.CounterVec
	fileDuration      *prometheus.HistogramVec
	dropsTotal        prometheus.Counter
	droppedBytesTotal prometheus.Counter
	recordsTotal      prometheus.Counter

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
	authRequestsTotal    *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		filesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitfix_files_total",
				Help: "Total number of captures processed",
			},
			[]string{"mode", "result"},
		),

		fileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitfix_file_duration_seconds",
				Help:    "Time spent reading and repairing one capture",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),

		dropsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitfix_drops_total",
				Help: "Total number of spans excised by drop recovery",
			},
		),

		droppedBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitfix_dropped_bytes_total",
				Help: "Total number of bytes excised by drop recovery",
			},
		),

		recordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitfix_records_recovered_total",
				Help: "Total number of records in recovered captures",
			},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitfix_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitfix_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fitfix_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitfix_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Result maps a repair error to a result label
func Result(err error) string {
	switch repair.KindOf(err) {
	case 0:
		if err != nil {
			return statusError
		}
		return statusSuccess
	case repair.KindConfiguration:
		return "configuration"
	case repair.KindRead:
		return "read"
	case repair.KindRecovery:
		return "recovery"
	case repair.KindValidation:
		return "validation"
	default:
		return statusError
	}
}

// RecordFile records the outcome of one capture
func (m *Metrics) RecordFile(mode string, res *repair.Result, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(mode, Result(err)).Inc()
	m.fileDuration.WithLabelValues(mode).Observe(duration.Seconds())

	if res == nil {
		return
	}
	m.dropsTotal.Add(float64(len(res.Report.Drops)))
	m.droppedBytesTotal.Add(float64(res.Report.Dropped()))
	m.recordsTotal.Add(float64(res.Report.Records))
}

// RecordFileResult is RecordFile for a batch result
func (m *Metrics) RecordFileResult(mode string, r repair.FileResult) {
	m.RecordFile(mode, r.Result, r.Err, r.Duration)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAuthRequest records an authentication attempt
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values to path for the node exporter
// textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
