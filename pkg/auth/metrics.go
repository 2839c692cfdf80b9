package auth

import "github.com/prometheus/client_golang/prometheus"

// decision results recorded on rbac_decisions_total
const (
	resultAllowed         = "allowed"
	resultDenied          = "denied"
	resultUnauthenticated = "unauthenticated"
	resultPending         = "pending"
	resultUnregistered    = "unregistered"
)

func newDecisionCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_decisions_total",
			Help: "Access decisions taken by route guards",
		},
		[]string{"guard", "result"},
	)
}
