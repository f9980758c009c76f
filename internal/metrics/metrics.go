// Package metrics exposes Prometheus collectors for the delivery engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	deliveryAttemptsTotal          *prometheus.CounterVec
	deliveryAttemptDurationSeconds *prometheus.HistogramVec
	runsTotal                      *prometheus.CounterVec
	activeSlots                    prometheus.Gauge
	renderedURLsTotal              prometheus.Counter
	httpRequestsTotal              *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		deliveryAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkforge_delivery_attempts_total",
				Help: "Total delivery attempts, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		deliveryAttemptDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkforge_delivery_attempt_duration_seconds",
				Help:    "Histogram of delivery attempt latencies, labeled by mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 8, 10},
			},
			[]string{"mode"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkforge_runs_total",
				Help: "Total runs processed, labeled by final status.",
			},
			[]string{"status"},
		)

		activeSlots = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkforge_active_slots",
				Help: "Number of slots currently executing a task.",
			},
		)

		renderedURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkforge_rendered_urls_total",
				Help: "Total URLs rendered from templates.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAttempt records one resolved delivery attempt.
func ObserveAttempt(mode string, success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	deliveryAttemptsTotal.WithLabelValues(mode, outcome).Inc()
	deliveryAttemptDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveRun increments the run counter for the given final status.
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// IncActiveSlots increments the active slots gauge.
func IncActiveSlots() {
	activeSlots.Inc()
}

// DecActiveSlots decrements the active slots gauge.
func DecActiveSlots() {
	activeSlots.Dec()
}

// AddRenderedURLs counts URLs produced during queue construction.
func AddRenderedURLs(n int) {
	if n > 0 {
		renderedURLsTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method string, code string) {
	httpRequestsTotal.WithLabelValues(method, code).Inc()
}
