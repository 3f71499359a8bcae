package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/richard-senior/podds/pkg/podds"
)

// Recorder publishes simulation metrics. A nil Recorder records nothing.
type Recorder struct {
	simulations     *prometheus.CounterVec
	capsHit         *prometheus.CounterVec
	overcorrections *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewRecorder registers the podds metrics on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		simulations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podds_simulations_total",
				Help: "Total number of simulations run",
			},
			[]string{"scenario"},
		),
		capsHit: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podds_caps_hit_total",
				Help: "Simulations where an adjustment cap was hit",
			},
			[]string{"scenario"},
		),
		overcorrections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podds_overcorrection_warnings_total",
				Help: "Simulations flagged for overcorrection",
			},
			[]string{"scenario"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "podds_simulation_duration_seconds",
				Help:    "Time spent producing one simulation",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"scenario"},
		),
	}
}

// Observe records one finished simulation
func (r *Recorder) Observe(sim podds.Simulation, elapsed time.Duration) {
	if r == nil {
		return
	}
	scenario := string(sim.ScenarioType)
	r.simulations.WithLabelValues(scenario).Inc()
	if len(sim.CapsHit) > 0 {
		r.capsHit.WithLabelValues(scenario).Inc()
	}
	if sim.OvercorrectionWarning {
		r.overcorrections.WithLabelValues(scenario).Inc()
	}
	r.duration.WithLabelValues(scenario).Observe(elapsed.Seconds())
}
