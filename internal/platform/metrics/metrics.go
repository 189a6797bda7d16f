package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the graph core.
type Metrics struct {
	GraphOperationDuration *prometheus.HistogramVec
	GraphOperationFailures *prometheus.CounterVec
	EntitiesCreated        *prometheus.CounterVec
	OrphansRecorded        prometheus.Counter
	EventsPublished        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GraphOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smarttracing_graph_operation_duration_seconds",
			Help:    "Duration of graph engine round trips by operation kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		GraphOperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttracing_graph_operation_failures_total",
			Help: "Graph operations that returned an error, by operation kind",
		}, []string{"kind"}),
		EntitiesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttracing_entities_created_total",
			Help: "Vertices created, by label",
		}, []string{"label"}),
		OrphansRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "smarttracing_onboarding_orphans_recorded_total",
			Help: "Organizations left without a default site and recorded for reconciliation",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttracing_events_published_total",
			Help: "Domain events handed to the publisher, by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveGraphOperation records the duration of a graph round trip started at
// start, and counts it as a failure when err is non-nil.
func (m *Metrics) ObserveGraphOperation(kind string, start time.Time, err error) {
	m.GraphOperationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		m.GraphOperationFailures.WithLabelValues(kind).Inc()
	}
}

// IncrementEntitiesCreated records a vertex creation.
func (m *Metrics) IncrementEntitiesCreated(label string) {
	m.EntitiesCreated.WithLabelValues(label).Inc()
}

// IncrementOrphansRecorded records an onboarding saga left incomplete.
func (m *Metrics) IncrementOrphansRecorded() {
	m.OrphansRecorded.Inc()
}

// IncrementEventsPublished records a publish attempt; ok is false on failure.
func (m *Metrics) IncrementEventsPublished(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}
