package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutsTotal,
		notificationsTotal,
		settlementsTotal,
		gatewayRequestsTotal,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_initiated_total",
			Help: "Checkout initiations by provider and result (ok/error).",
		},
		[]string{"provider", "result"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Inbound notifications by provider and handling result (settled/noop/rejected/error).",
		},
		[]string{"provider", "result"},
	)

	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_settlements_total",
			Help: "Transaction state transitions applied by the reconciler.",
		},
		[]string{"provider", "state"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outbound gateway HTTP calls by provider, operation, and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)
)

func IncCheckout(provider, result string) {
	checkoutsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncNotification(provider, result string) {
	notificationsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncSettlement(provider, state string) {
	settlementsTotal.WithLabelValues(norm(provider), norm(state)).Inc()
}

func IncGatewayRequest(provider, op, outcome string) {
	gatewayRequestsTotal.WithLabelValues(norm(provider), norm(op), norm(outcome)).Inc()
}
