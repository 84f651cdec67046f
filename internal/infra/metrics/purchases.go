package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		purchasesTotal,
		purchaseRevenueCents,
		purchasesExpiredTotal,
	)
}

var (
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase lifecycle events by provider and status.",
		},
		[]string{"provider", "status"},
	)

	purchaseRevenueCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_revenue_cents_total",
			Help: "Confirmed purchase revenue in USD cents, labeled by provider.",
		},
		[]string{"provider"},
	)

	purchasesExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_expired_total",
			Help: "PENDING purchases failed by the payment-window sweep.",
		},
	)
)

func IncPurchase(provider, status string) {
	purchasesTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}

func AddPurchaseRevenue(provider string, cents int64) {
	purchaseRevenueCents.WithLabelValues(norm(provider)).Add(float64(cents))
}

func IncPurchasesExpired(n int) {
	purchasesExpiredTotal.Add(float64(n))
}
