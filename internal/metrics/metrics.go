package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "huette"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_events_total",
			Help:      "Count of reservation lifecycle events by type.",
		},
		[]string{"event"},
	)

	capacityClamped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_clamped_total",
			Help:      "Count of negative free-capacity figures from the HRS feed clamped to zero.",
		},
		[]string{"category"},
	)

	importRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hrs_import_runs_total",
			Help:      "Count of HRS import runs by status.",
		},
		[]string{"status"},
	)

	importDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hrs_import_duration_seconds",
			Help:      "Duration of HRS import runs.",
			Buckets:   []float64{.1, .5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationEvents, capacityClamped, importRuns, importDuration)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationEvent(event string) {
	reservationEvents.WithLabelValues(event).Inc()
}

func IncCapacityClamped(category string) {
	capacityClamped.WithLabelValues(category).Inc()
}

// ObserveImport records the outcome and duration of an import run.
func ObserveImport(status string, seconds float64) {
	importRuns.WithLabelValues(status).Inc()
	importDuration.Observe(seconds)
}
