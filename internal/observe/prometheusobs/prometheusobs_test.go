package prometheusobs

import (
	"testing"

	"atrion/internal/observe"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnUpdateSetsGaugesAndIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)

	m := 2.5
	o.OnUpdate(observe.Event{
		RouteID:           "checkout",
		Resistance:        42,
		ScarTissue:        3,
		Momentum:          &m,
		PressureMagnitude: 0.8,
		TickCount:         7,
		Decision:          observe.DecisionFlow,
		ModeTransition:    &observe.ModeTransition{From: "OPERATIONAL", To: "CIRCUIT_BREAKER"},
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	metricByName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		metricByName[f.GetName()] = f
	}

	require.Contains(t, metricByName, "atrion_route_resistance")
	assert.Equal(t, 42.0, metricByName["atrion_route_resistance"].Metric[0].GetGauge().GetValue())

	require.Contains(t, metricByName, "atrion_route_mode_transitions_total")
	assert.Equal(t, 1.0, metricByName["atrion_route_mode_transitions_total"].Metric[0].GetCounter().GetValue())
}
