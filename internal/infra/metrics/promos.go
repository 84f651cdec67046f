package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(promoApplicationsTotal) }

var promoApplicationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "promo_applications_total",
		Help: "Promo validation outcomes ('applied' or a rejection reason).",
	},
	[]string{"outcome"},
)

func IncPromoApplication(outcome string) {
	promoApplicationsTotal.WithLabelValues(norm(outcome)).Inc()
}
