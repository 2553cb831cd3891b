package otelobs

import (
	"context"
	"errors"
	"testing"

	"atrion/internal/observe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOnUpdateRecordsInstrumentsWithoutError(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("atrion-test")

	o, err := New(meter)
	require.NoError(t, err)

	m := 1.0
	assert.NotPanics(t, func() {
		o.OnUpdate(observe.Event{
			RouteID:           "checkout",
			Resistance:        12,
			ScarTissue:        1,
			Momentum:          &m,
			PressureMagnitude: 0.2,
			Decision:          observe.DecisionFlow,
			ModeTransition:    &observe.ModeTransition{From: "BOOTSTRAP", To: "OPERATIONAL"},
		})
	})
}

func TestRouteTracerRecordsErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	tracer := NewRouteTracer(provider.Tracer("atrion-test"))

	wantErr := errors.New("boom")
	allow, resistance, reason, err := tracer.TraceRoute(context.Background(), "checkout", func(ctx context.Context) (bool, float64, string, error) {
		return false, 50, "Circuit breaker open", wantErr
	})

	assert.False(t, allow)
	assert.Equal(t, 50.0, resistance)
	assert.Equal(t, "Circuit breaker open", reason)
	assert.ErrorIs(t, err, wantErr)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "atrion.route", spans[0].Name())
}
