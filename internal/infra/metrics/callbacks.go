package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		callbackRequests,
		callbackDuration,
	)
}

var (
	// result: confirmed|failed|duplicate|ignored|rejected
	// reason: bounded ReasonCode, empty when accepted
	callbackRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callback_requests_total",
			Help: "Gateway callbacks by gateway, result and reason.",
		},
		[]string{"gateway", "result", "reason"},
	)

	callbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_callback_duration_seconds",
			Help:    "Duration of callback handling in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"gateway", "result"},
	)
)

func IncCallback(gateway, result, reason string) {
	callbackRequests.WithLabelValues(norm(gateway), norm(result), norm(reason)).Inc()
}

func ObserveCallback(gateway, result string, seconds float64) {
	callbackDuration.WithLabelValues(norm(gateway), norm(result)).Observe(seconds)
}
