// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CyclesTotal counts poll cycles by outcome: handled, idle or error.
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barnechea_cycles_total",
		Help: "Poll cycles by outcome.",
	}, []string{"result"})

	// CycleDuration observes wall time per poll cycle.
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "barnechea_cycle_duration_seconds",
		Help:    "Poll cycle duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// BookingAttempts counts booking attempts by how they ended: booked, or
	// the stage that failed.
	BookingAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barnechea_booking_attempts_total",
		Help: "Booking attempts by outcome.",
	}, []string{"result"})

	// NotificationsTotal counts outbound messages by kind and result.
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barnechea_notifications_total",
		Help: "Outbound WhatsApp messages by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	prometheus.MustRegister(CyclesTotal, CycleDuration, BookingAttempts, NotificationsTotal)
}
