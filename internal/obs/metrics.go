package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartCalculationDuration records full cart calculation latency.
	CartCalculationDuration prometheus.Histogram
	// PromotionsTotal counts promotion application outcomes by result.
	PromotionsTotal *prometheus.CounterVec
	// CartLocksTotal counts lock acquisitions.
	CartLocksTotal prometheus.Counter
	// CartLockTimeoutsTotal counts lock acquisition timeouts.
	CartLockTimeoutsTotal prometheus.Counter
	// OrdersPlacedTotal counts order placement outcomes by result.
	OrdersPlacedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the checkout domain
// Prometheus collectors. Safe to call once per process.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartCalculationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_calculation_duration_ms",
			Help:      "Latency of a full cart calculation pass in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		})
		PromotionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_total",
			Help:      "Count of promotion application outcomes.",
		}, []string{"result"})
		CartLocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_locks_total",
			Help:      "Count of successful cart lock acquisitions.",
		})
		CartLockTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_lock_timeouts_total",
			Help:      "Count of cart lock acquisition timeouts.",
		})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement outcomes.",
		}, []string{"result"})
		reg.MustRegister(CartCalculationDuration, PromotionsTotal, CartLocksTotal, CartLockTimeoutsTotal, OrdersPlacedTotal)
	})
}

// CountLockAcquired increments the lock acquisition counter when metrics are
// registered.
func CountLockAcquired() {
	if CartLocksTotal != nil {
		CartLocksTotal.Inc()
	}
}

// CountLockTimeout increments the lock timeout counter when metrics are
// registered.
func CountLockTimeout() {
	if CartLockTimeoutsTotal != nil {
		CartLockTimeoutsTotal.Inc()
	}
}

// ObserveCalculation records the duration of one calculation pass.
func ObserveCalculation(start time.Time) {
	if CartCalculationDuration != nil {
		CartCalculationDuration.Observe(float64(time.Since(start).Milliseconds()))
	}
}

// CountPromotion records a promotion outcome ("applied", "excluded",
// "not-eligible", "no-package").
func CountPromotion(result string) {
	if PromotionsTotal != nil {
		PromotionsTotal.WithLabelValues(result).Inc()
	}
}

// CountOrder records an order placement outcome.
func CountOrder(result string) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
}
