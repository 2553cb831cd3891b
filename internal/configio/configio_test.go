package configio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
defaultVoltage: 100
keyPrefix: "atrion:state:"
syncChannel: "atrion:sync"
physics:
  baseResistance: 10
  decayRate: 1.0
  scarFactor: 5
  dampingFactor: 20
  criticalPressure: 0.4
  breakMultiplier: 10
  bootstrapTicks: 5
  minDeltaTMs: 1
  tanhScale: 1.0
autoTuner:
  window: 100
  warmupTicks: 50
  minFloor: 30
  hardCeiling: 500
  recoveryMultiplier: 0.5
  sensitivity: 3.0
routes:
  - routeId: checkout
    criticality: {latency: 5, error: 10, saturation: 5}
    target: {baselineLatencyMs: 50, targetErrorRate: 0.01, baselineSaturation: 0.8}
    profile: STANDARD
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "atrion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesDocument(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100.0, doc.DefaultVoltage)
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "checkout", doc.Routes[0].RouteID)
	assert.Equal(t, 5.0, doc.Routes[0].Criticality.Latency)

	cfg := doc.Physics.PhysicsConfig()
	assert.Equal(t, 10.0, cfg.BaseResistance)
	assert.Equal(t, 5, cfg.BootstrapTicks)

	require.NotNil(t, doc.AutoTuner)
	params := doc.AutoTuner.AutoTunerParams()
	assert.Equal(t, 100, params.Window)
}

func TestPhysicsConfigFallsBackToDefaultsForZeroFields(t *testing.T) {
	var y PhysicsConfigYAML
	cfg := y.PhysicsConfig()
	assert.Equal(t, 10.0, cfg.BaseResistance, "zero-valued YAML fields fall back to config.DefaultPhysicsConfig")
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestWatcherInvokesOnChangeAfterWrite(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	changes := make(chan *Document, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Watch(ctx, func(d *Document) { changes <- d }, nil)

	// Give the watcher goroutine a moment to register with fsnotify before
	// the write, avoiding a flaky miss of the event.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"\n# touched\n"), 0o644))

	select {
	case doc := <-changes:
		assert.Equal(t, 100.0, doc.DefaultVoltage)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}
