package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsReconciled,
		reconcileErrors,
	)
}

var (
	// result: created|existing
	subscriptionsReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_reconciled_total",
			Help: "Reconcile calls that produced a subscription, split by newly created vs already present.",
		},
		[]string{"result"},
	)

	reconcileErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_reconcile_errors_total",
			Help: "Reconcile calls that failed after a payment was confirmed.",
		},
	)
)

func IncReconciled(result string) {
	subscriptionsReconciled.WithLabelValues(norm(result)).Inc()
}

func IncReconcileError() {
	reconcileErrors.Inc()
}
