package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "argo_signal"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Triggers         *prometheus.CounterVec
	Outcomes         *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	InFlight         prometheus.Gauge
	Deliveries       *prometheus.CounterVec
	ActiveStrategies prometheus.Gauge
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Strategy rule sets that fired on a closed candle",
			},
			[]string{"strategy"},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Evaluation outcomes by final state",
			},
			[]string{"strategy", "state"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each validation stage",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluations_in_flight",
			Help:      "Candidates currently being validated",
		}),
		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Signal handoffs by collaborator and status",
			},
			[]string{"target", "status"},
		),
		ActiveStrategies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_strategies",
			Help:      "Strategies currently activated",
		}),
	}

	collectors := []prometheus.Collector{
		m.Triggers, m.Outcomes, m.StageDuration, m.InFlight, m.Deliveries, m.ActiveStrategies,
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the gatherer's metrics in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Trigger counts a strategy whose rules held.
func (m *Metrics) Trigger(strategy string) {
	if m == nil {
		return
	}

	m.Triggers.WithLabelValues(strategy).Inc()
}

// Outcome counts a strategy evaluation entering state.
func (m *Metrics) Outcome(strategy, state string) {
	if m == nil {
		return
	}

	m.Outcomes.WithLabelValues(strategy, state).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}

	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// EvaluationStarted increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) EvaluationStarted() func() {
	if m == nil {
		return func() {}
	}

	m.InFlight.Inc()

	return m.InFlight.Dec
}

// Delivery counts a handoff to target as success or failed.
func (m *Metrics) Delivery(target string, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failed"
	}

	m.Deliveries.WithLabelValues(target, status).Inc()
}

// SetActiveStrategies sets the active strategy gauge.
func (m *Metrics) SetActiveStrategies(n int) {
	if m == nil {
		return
	}

	m.ActiveStrategies.Set(float64(n))
}
