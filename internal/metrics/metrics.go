package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drivebook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drivebook",
			Name:      "reservation_operations_total",
			Help:      "Reservation mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	availabilitySyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "drivebook",
			Name:      "availability_syncs_total",
			Help:      "Availability flag recomputations.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationOps, availabilitySyncs)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncReservationOp records a reservation mutation outcome.
func IncReservationOp(operation, outcome string) {
	reservationOps.WithLabelValues(operation, outcome).Inc()
}

// IncAvailabilitySync records one synchronizer run.
func IncAvailabilitySync() {
	availabilitySyncs.Inc()
}
