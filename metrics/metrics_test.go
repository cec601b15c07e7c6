package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	registry := events.NewRegistry().Subscribe(c)

	match := &infill.Match{FullText: "@[x]", Payload: "x"}
	registry.Dispatch(&infill.DetectionEvent{Match: match})
	registry.Dispatch(&infill.DetectionEvent{})
	registry.Dispatch(&infill.DetectionEvent{})

	registry.Dispatch(&infill.GenerationEvent{
		Model:    "gpt-test",
		Result:   infill.Replacement("X"),
		Duration: 1500 * time.Millisecond,
	})
	registry.Dispatch(&infill.GenerationEvent{
		Model:    "gpt-test",
		Result:   infill.Failure(infill.FailureTransportError, "down"),
		Duration: 200 * time.Millisecond,
	})

	registry.Dispatch(&infill.SubstitutionEvent{Positional: true})
	registry.Dispatch(&infill.SubstitutionEvent{})
	registry.Dispatch(&infill.SubstitutionEvent{Err: infill.ErrStaleMatch})

	registry.Dispatch(&infill.ErrorEvent{Kind: infill.ErrorKindConfiguration, Err: infill.ErrInvalidPattern})
	registry.Dispatch(&infill.ErrorEvent{Err: errors.New("dialog closed")})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.detections.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.detections.WithLabelValues("false")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues("transport_error")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.substitutions.WithLabelValues(ModePositional)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.substitutions.WithLabelValues(ModeLiteral)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.substitutions.WithLabelValues(ModeStale)))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("configuration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("dialog")))

	expected := `
# HELP infill_generation_duration_seconds Generation call duration in seconds
# TYPE infill_generation_duration_seconds histogram
infill_generation_duration_seconds_bucket{model="gpt-test",le="0.25"} 1
infill_generation_duration_seconds_bucket{model="gpt-test",le="0.5"} 1
infill_generation_duration_seconds_bucket{model="gpt-test",le="1"} 1
infill_generation_duration_seconds_bucket{model="gpt-test",le="2.5"} 2
infill_generation_duration_seconds_bucket{model="gpt-test",le="5"} 2
infill_generation_duration_seconds_bucket{model="gpt-test",le="10"} 2
infill_generation_duration_seconds_bucket{model="gpt-test",le="30"} 2
infill_generation_duration_seconds_bucket{model="gpt-test",le="60"} 2
infill_generation_duration_seconds_bucket{model="gpt-test",le="+Inf"} 2
infill_generation_duration_seconds_sum{model="gpt-test"} 1.7
infill_generation_duration_seconds_count{model="gpt-test"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "infill_generation_duration_seconds"))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
