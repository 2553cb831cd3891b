package engine_test

import (
	"context"
	"testing"

	"atrion/internal/configio"
	"atrion/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDocumentPreRegistersRoutesWithOverrides(t *testing.T) {
	doc := &configio.Document{
		DefaultVoltage: 75,
		Physics:        configio.PhysicsConfigYAML{BaseResistance: 20},
		Routes: []configio.RouteConfig{
			{
				RouteID:     "checkout",
				Criticality: configio.SLOCriticalityYAML{Latency: 8},
				Target:      configio.SLOTargetYAML{BaselineLatencyMs: 200, TargetErrorRate: 0.02, BaselineSaturation: 0.6},
				Profile:     "heavy",
			},
		},
	}

	e := engine.NewFromDocument(doc, engine.Options{Clock: newFakeClock()})
	defer e.Close()
	require.NoError(t, e.Connect(context.Background()))

	assert.Contains(t, e.GetRoutes(), "checkout")

	d, err := e.Route(context.Background(), "checkout", samplePressureTelemetry(), engine.RouteOptions{})
	require.NoError(t, err)
	// Document-wide physics override raises baseResistance to 20, so even
	// in Bootstrap (1.2x) resistance must exceed the package default's 12.
	assert.Greater(t, d.Resistance, 12.0)
}
