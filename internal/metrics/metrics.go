package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blg"

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Reservation create attempts by result.",
		},
		[]string{"result"},
	)

	validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Conflict validator rejections by failing check.",
		},
		[]string{"check"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Reservation status changes by target status.",
		},
		[]string{"to"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Expiry sweep runs by result.",
		},
		[]string{"result"},
	)

	sweepCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_cancelled_total",
			Help:      "Accepted reservations cancelled by the expiry sweep.",
		},
	)

	sweepRowFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_row_failures_total",
			Help:      "Rows the expiry sweep failed to update.",
		},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Messages handed to the broker by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, validationRejections, transitions,
			sweepRuns, sweepCancelled, sweepRowFailures, eventsPublished)
	})
}

func IncReservationCreated(result string) {
	reservationsCreated.WithLabelValues(result).Inc()
}

func IncValidationRejection(check string) {
	validationRejections.WithLabelValues(check).Inc()
}

func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

func IncSweepRun(result string) {
	sweepRuns.WithLabelValues(result).Inc()
}

func AddSweepCancelled(n int) {
	sweepCancelled.Add(float64(n))
}

func IncSweepRowFailure() {
	sweepRowFailures.Inc()
}

func IncEventPublished(kind, result string) {
	eventsPublished.WithLabelValues(kind, result).Inc()
}
