// Package metrics exports controller events as Prometheus metrics.
//
//	registry := events.NewRegistry()
//	registry.Subscribe(metrics.New(prometheus.DefaultRegisterer))
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rickchristie/infill"
)

const namespace = "infill"

// Substitution modes used as the "mode" label.
const (
	ModePositional = "positional"
	ModeLiteral    = "literal"
	ModeStale      = "stale"
)

// Collector counts detections, generations, substitutions and errors. It
// implements the detection, generation, substitution and error subscriber
// interfaces.
type Collector struct {
	detections    *prometheus.CounterVec
	generations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	substitutions *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		detections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Total number of detection passes",
			},
			[]string{"found"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of generation calls by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Generation call duration in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		substitutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "substitutions_total",
				Help:      "Total number of applied or skipped substitutions",
			},
			[]string{"mode"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of controller errors by kind",
			},
			[]string{"kind"},
		),
	}
}

// OnDetection implements infill.DetectionSubscriber.
func (c *Collector) OnDetection(e *infill.DetectionEvent) {
	c.detections.WithLabelValues(strconv.FormatBool(e.Match != nil)).Inc()
}

// OnGeneration implements infill.GenerationSubscriber.
func (c *Collector) OnGeneration(e *infill.GenerationEvent) {
	c.generations.WithLabelValues(e.Result.Failure.String()).Inc()
	c.duration.WithLabelValues(e.Model).Observe(e.Duration.Seconds())
}

// OnSubstitution implements infill.SubstitutionSubscriber.
func (c *Collector) OnSubstitution(e *infill.SubstitutionEvent) {
	mode := ModeLiteral
	switch {
	case e.Err != nil:
		mode = ModeStale
	case e.Positional:
		mode = ModePositional
	}
	c.substitutions.WithLabelValues(mode).Inc()
}

// OnError implements infill.ErrorSubscriber.
func (c *Collector) OnError(e *infill.ErrorEvent) {
	kind := string(e.Kind)
	if kind == "" {
		kind = "dialog"
	}
	c.errors.WithLabelValues(kind).Inc()
}

// Compile-time checks.
var (
	_ infill.DetectionSubscriber    = (*Collector)(nil)
	_ infill.GenerationSubscriber   = (*Collector)(nil)
	_ infill.SubstitutionSubscriber = (*Collector)(nil)
	_ infill.ErrorSubscriber        = (*Collector)(nil)
)
