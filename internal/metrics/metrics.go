package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRentalsGauge tracks sessions currently in the ACTIVE phase.
	ActiveRentalsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scooter_active_rentals",
			Help: "Current number of rental sessions in the active phase",
		},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scooter_session_transitions_total",
			Help: "Total number of rental session phase transitions",
		},
		[]string{"phase"},
	)

	AbortsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scooter_aborts_total",
			Help: "Total number of server-declared ride aborts",
		},
		[]string{"branch"},
	)

	PollFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scooter_poll_failures_total",
			Help: "Abort-status polls that failed in transport and were treated as no signal",
		},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scooter_backend_request_duration_seconds",
			Help:    "Rental backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scooter_websocket_connections",
			Help: "Current number of session event WebSocket connections",
		},
	)
)

// ObserveBackendRequest records one backend call. A zero status means the call
// failed before a response arrived.
func ObserveBackendRequest(operation string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequestDuration.WithLabelValues(operation, label).Observe(time.Since(started).Seconds())
}
