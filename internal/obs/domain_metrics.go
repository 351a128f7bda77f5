package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentInitiateTotal counts payment initiation outcomes.
	PaymentInitiateTotal *prometheus.CounterVec
	// PollTicksTotal counts tracker poll ticks by result.
	PollTicksTotal *prometheus.CounterVec
	// TrackingOutcomeTotal counts how tracking handles ended.
	TrackingOutcomeTotal *prometheus.CounterVec
	// ActiveTrackingHandles tracks the number of live polling loops.
	ActiveTrackingHandles prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentInitiateTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initiate_total",
			Help:      "Count of payment initiation outcomes.",
		}, []string{"gateway", "result"}))
		PollTicksTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_poll_ticks_total",
			Help:      "Count of transaction status poll ticks by result.",
		}, []string{"gateway", "result"}))
		TrackingOutcomeTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_tracking_outcome_total",
			Help:      "Count of tracking handle terminal outcomes.",
		}, []string{"gateway", "outcome"}))
		ActiveTrackingHandles = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payment_tracking_active_handles",
			Help:      "Number of currently active transaction tracking handles.",
		}))
	})
}
