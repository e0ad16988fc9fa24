// Package metrics exposes Prometheus collectors for provider calls.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called by init() to enqueue collectors.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers all enqueued collectors with Prometheus exactly once.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}

func init() {
	register(
		providerRequestsTotal,
		providerRequestDuration,
		bankFallbackTotal,
	)
}

var (
	// outcome: ok or an error code such as TIMEOUT, VALIDATION_ERROR.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khipu_requests_total",
			Help: "Provider API calls by generation, operation and outcome.",
		},
		[]string{"generation", "operation", "outcome"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "khipu_request_duration_seconds",
			Help:    "Duration of provider API calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"generation", "operation"},
	)

	// result: recovered|failed
	bankFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khipu_bank_fallback_total",
			Help: "Bank list fallbacks to an older API generation by result.",
		},
		[]string{"result"},
	)
)

// ObserveProviderCall records one provider call.
func ObserveProviderCall(generation, operation, outcome string, elapsed time.Duration) {
	providerRequestsTotal.WithLabelValues(norm(generation), norm(operation), norm(outcome)).Inc()
	providerRequestDuration.WithLabelValues(norm(generation), norm(operation)).Observe(elapsed.Seconds())
}

// IncBankFallback records a bank list fallback attempt.
func IncBankFallback(result string) {
	bankFallbackTotal.WithLabelValues(norm(result)).Inc()
}

func norm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
