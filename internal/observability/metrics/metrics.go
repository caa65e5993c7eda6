package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ReviewScanner/internal/ports"
)

// Metrics owns a private registry with pipeline and HTTP collectors.
type Metrics struct {
	registry *prometheus.Registry
	service  string

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	pagesTotal      *prometheus.CounterVec
	reviewsTotal    *prometheus.CounterVec
	sessionsOpened  prometheus.Counter
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ ports.Metrics = (*Metrics)(nil)

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reviewscanner",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed analyses by outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewscanner",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Analysis duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 300},
		},
		[]string{"service", "outcome"},
	)
	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reviewscanner",
			Subsystem: "harvest",
			Name:      "pages_total",
			Help:      "Review pages visited by outcome.",
		},
		[]string{"service", "outcome"},
	)
	reviewsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reviewscanner",
			Subsystem: "classifier",
			Name:      "reviews_total",
			Help:      "Classified reviews by label.",
		},
		[]string{"service", "label"},
	)
	sessionsOpened := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "reviewscanner",
			Subsystem:   "session",
			Name:        "opened_total",
			Help:        "Browser sessions launched.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reviewscanner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewscanner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	registry.MustRegister(
		runsTotal,
		runDuration,
		pagesTotal,
		reviewsTotal,
		sessionsOpened,
		requestTotal,
		requestDuration,
	)

	return &Metrics{
		registry:        registry,
		service:         service,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		pagesTotal:      pagesTotal,
		reviewsTotal:    reviewsTotal,
		sessionsOpened:  sessionsOpened,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRun(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.runsTotal.WithLabelValues(m.service, outcome).Inc()
	m.runDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *Metrics) ObservePage(outcome string) {
	m.pagesTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *Metrics) ObserveLabels(fake, genuine int) {
	if fake > 0 {
		m.reviewsTotal.WithLabelValues(m.service, "fake").Add(float64(fake))
	}
	if genuine > 0 {
		m.reviewsTotal.WithLabelValues(m.service, "genuine").Add(float64(genuine))
	}
}

func (m *Metrics) ObserveSessionOpened() {
	m.sessionsOpened.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/analyses/"):
		return "/v1/analyses/{id}"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
