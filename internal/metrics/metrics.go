// Package metrics exposes Prometheus instrumentation for the decision core.
//
// Every method is safe on a nil *Metrics so components and tests can run
// without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relicfleet"

// Reasons for resetting tile type knowledge.
const (
	ReasonDirectionAmbiguous = "direction_ambiguous"
	ReasonParamsContradicted = "params_contradicted"
)

// Metrics holds all counters of one agent.
type Metrics struct {
	TypeInvalidations   *prometheus.CounterVec
	ObservationsDropped prometheus.Counter
	ParamsConfirmed     *prometheus.CounterVec
	TasksAssigned       *prometheus.CounterVec
	PlanFailures        *prometheus.CounterVec
	PlanConflicts       prometheus.Counter
	TurnDurationSeconds prometheus.Histogram
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TypeInvalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "type_invalidations_total",
			Help:      "Times all tile type knowledge was reset, by reason.",
		}, []string{"reason"}),
		ObservationsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_observations_dropped_total",
			Help:      "Reward observations discarded as inconsistent.",
		}),
		ParamsConfirmed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "params_confirmed_total",
			Help:      "Obstacle movement parameters confirmed, by parameter.",
		}, []string{"param"}),
		TasksAssigned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_assigned_total",
			Help:      "Tasks committed to units, by kind.",
		}, []string{"kind"}),
		PlanFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_failures_total",
			Help:      "Tasks released because no path was found, by kind.",
		}, []string{"kind"}),
		PlanConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_conflicts_total",
			Help:      "Turns whose committed plans collided.",
		}),
		TurnDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent deciding one turn.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
	}
}

func (m *Metrics) TypesInvalidated(reason string) {
	if m != nil {
		m.TypeInvalidations.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObservationDropped() {
	if m != nil {
		m.ObservationsDropped.Inc()
	}
}

func (m *Metrics) ParamConfirmed(param string) {
	if m != nil {
		m.ParamsConfirmed.WithLabelValues(param).Inc()
	}
}

func (m *Metrics) TaskAssigned(kind string) {
	if m != nil {
		m.TasksAssigned.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PlanFailed(kind string) {
	if m != nil {
		m.PlanFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PlanConflict() {
	if m != nil {
		m.PlanConflicts.Inc()
	}
}

// ObserveTurn records the time spent since start.
func (m *Metrics) ObserveTurn(start time.Time) {
	if m != nil {
		m.TurnDurationSeconds.Observe(time.Since(start).Seconds())
	}
}
