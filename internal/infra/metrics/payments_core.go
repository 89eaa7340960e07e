package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentIntentsTotal,
		paymentsRevenueTotal,
		confirmedRevenue,
		sweptIntentsTotal,
	)
}

var (
	// status: initiated|gateway_error|confirmed|failed|expired
	paymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents by gateway and lifecycle step.",
		},
		[]string{"gateway", "status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_minor_total",
			Help: "Monetary value of confirmed payments in minor units, by currency.",
		},
		[]string{"currency"},
	)

	confirmedRevenue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payments_confirmed_revenue_minor",
			Help: "Sum of confirmed payments over the trailing window, refreshed by the sweeper.",
		},
	)

	sweptIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_sweeper_actions_total",
			Help: "Intents touched by the background sweeper, by action (expired|healed).",
		},
		[]string{"action"},
	)
)

func IncPaymentIntent(gateway, status string) {
	paymentIntentsTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func SetConfirmedRevenue(amount int64) {
	confirmedRevenue.Set(float64(amount))
}

func AddSwept(action string, n int) {
	sweptIntentsTotal.WithLabelValues(norm(action)).Add(float64(n))
}
