package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Validations counts validation runs by outcome: feasible, infeasible or rejected
	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wl_validations_total", Help: "Validation runs by outcome."},
		[]string{"outcome"},
	)
	// Violations counts detected violations by kind
	Violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wl_violations_total", Help: "Constraint violations found, by kind."},
		[]string{"kind"},
	)
	// ValidationDuration tracks parse + assign + compute time
	ValidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "wl_validation_duration_seconds", Help: "Validation duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14)},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Validations)
		Registry.MustRegister(Violations)
		Registry.MustRegister(ValidationDuration)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveValidation records one finished validation. byKind may be nil for
// rejected inputs.
func ObserveValidation(outcome string, byKind map[string]int, took time.Duration) {
	Validations.WithLabelValues(outcome).Inc()
	for kind, n := range byKind {
		if n > 0 {
			Violations.WithLabelValues(kind).Add(float64(n))
		}
	}
	ValidationDuration.Observe(took.Seconds())
}
