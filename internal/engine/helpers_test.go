package engine_test

import (
	"atrion/internal/autotune"
	"atrion/internal/pressure"
)

// autoTunerParams is a shared AutoTuner configuration for tests that need
// one wired in but don't care about its exact shape.
var autoTunerParams = autotune.Params{
	Window:             20,
	WarmupTicks:        5,
	MinFloor:           10,
	HardCeiling:        1000,
	RecoveryMultiplier: 0.5,
	Sensitivity:        2,
}

// samplePressureTelemetry returns telemetry well above every default
// baseline used by newTestEngine, so Normalize produces a strongly positive
// pressure vector instead of all-zero.
func samplePressureTelemetry() pressure.RawTelemetry {
	return pressure.RawTelemetry{
		LatencyMs:  500,
		ErrorRate:  0.2,
		Saturation: 0.9,
	}
}
