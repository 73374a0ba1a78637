package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts order creation outcomes.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderStatusTransitions counts order lifecycle transitions by target status.
	OrderStatusTransitions *prometheus.CounterVec
	// ERPSyncTotal tracks ERP delivery dispatch outcomes.
	ERPSyncTotal *prometheus.CounterVec
	// ERPSyncLatency records ERP delivery attempt latency in milliseconds.
	ERPSyncLatency *prometheus.HistogramVec
	// ERPSyncDLQ counts deliveries that exhausted retries.
	ERPSyncDLQ prometheus.Counter
	// CatalogCacheHits counts catalog cache lookups by result.
	CatalogCacheHits *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of order creation outcomes.",
		}, []string{"result"})
		OrderStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Count of order status transitions.",
		}, []string{"status"})
		ERPSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "erp_sync_total",
			Help:      "Count of ERP sync delivery outcomes.",
		}, []string{"result"})
		ERPSyncLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "erp_sync_duration_ms",
			Help:      "Latency for ERP sync delivery attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		ERPSyncDLQ = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "erp_sync_dead_letters_total",
			Help:      "Count of ERP deliveries that exhausted their retry budget.",
		})
		CatalogCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"})

		collectors := []prometheus.Collector{
			OrdersCreatedTotal,
			OrderStatusTransitions,
			ERPSyncTotal,
			ERPSyncLatency,
			ERPSyncDLQ,
			CatalogCacheHits,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}
