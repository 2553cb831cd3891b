// Package pressure maps raw telemetry onto a bounded, signed pressure
// vector. It is part of the purity-constrained core: no I/O, no clock, no
// randomness — see spec.md §5's "Purity boundary".
package pressure

import "atrion/internal/numeric"

// RawTelemetry is the unnormalized per-tick input to a route: observed
// latency in ms, observed error rate in [0,1], and observed resource
// saturation in [0,1]. A non-finite field yields a 0 component (Normalize
// routes through SafeDivide/SafeTanh), and physics.Tick sanitizes the
// resulting vector again; internal/engine passes telemetry through as-is.
type RawTelemetry struct {
	LatencyMs   float64
	ErrorRate   float64
	Saturation  float64
}

// Baselines are the per-route expected values telemetry is compared
// against, derived once from a route's SLO (see internal/config).
type Baselines struct {
	BaselineLatencyMs  float64
	TargetErrorRate    float64
	BaselineSaturation float64
}

// normalizeOne computes tanh(k * (raw-baseline)/baseline), returning 0 when
// baseline <= 0 (an unconfigured or degenerate baseline contributes no
// pressure rather than dividing by a non-positive number).
func normalizeOne(raw, baseline, k float64) float64 {
	if baseline <= 0 {
		return 0
	}
	ratio := numeric.SafeDivide(raw-baseline, baseline, 0)
	return numeric.SafeTanh(k * ratio)
}

// Normalize vectorizes normalizeOne over (latency, errorRate, saturation),
// producing a PressureVector with each component in (-1, 1): positive means
// worse than baseline, negative means better.
func Normalize(raw RawTelemetry, baseline Baselines, k float64) numeric.Vector3 {
	return numeric.Vector3{
		X: normalizeOne(raw.LatencyMs, baseline.BaselineLatencyMs, k),
		Y: normalizeOne(raw.ErrorRate, baseline.TargetErrorRate, k),
		Z: normalizeOne(raw.Saturation, baseline.BaselineSaturation, k),
	}
}
