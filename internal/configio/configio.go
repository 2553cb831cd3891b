// Package configio is the ambient loader half of the configuration &
// derivation component (spec.md §4.9/§9): it reads a YAML file on disk
// into plain internal/config types, and can watch that file for edits and
// push a freshly-parsed config to a callback. internal/config stays free
// of any file-system or YAML dependency; this package is the seam that
// feeds it. Grounded on
// 99souls-ariadne/packages/engine/config/runtime.go's
// NewHotReloadSystem/WatchConfigChanges (watch the config file's
// directory, re-parse on Write events, push to a channel) using the same
// gopkg.in/yaml.v3 + github.com/fsnotify/fsnotify stack.
package configio

import (
	"fmt"
	"os"
	"strings"

	"atrion/internal/autotune"
	"atrion/internal/config"

	"gopkg.in/yaml.v3"
)

// SLOCriticalityYAML, SLOTargetYAML mirror config.SLOCriticality /
// config.SLOTarget with yaml tags — kept separate from the pure config
// package so config never imports a YAML library.
type SLOCriticalityYAML struct {
	Latency    float64 `yaml:"latency"`
	Error      float64 `yaml:"error"`
	Saturation float64 `yaml:"saturation"`
}

type SLOTargetYAML struct {
	BaselineLatencyMs  float64 `yaml:"baselineLatencyMs"`
	TargetErrorRate    float64 `yaml:"targetErrorRate"`
	BaselineSaturation float64 `yaml:"baselineSaturation"`
}

// RouteConfig is one route's entry in the YAML document: its SLO
// criticality/target (from which weights and baselines are derived) and an
// optional per-route physics override.
type RouteConfig struct {
	RouteID      string              `yaml:"routeId"`
	Criticality  SLOCriticalityYAML  `yaml:"criticality"`
	Target       SLOTargetYAML       `yaml:"target"`
	Profile      string              `yaml:"profile,omitempty"`
	Physics      *PhysicsConfigYAML  `yaml:"physics,omitempty"`
}

// PhysicsConfigYAML mirrors config.PhysicsConfig with yaml tags. Its
// fields are plain values, so an omitted field and an explicit zero look
// the same; PhysicsConfig decides per field which values fall back to
// config.DefaultPhysicsConfig.
type PhysicsConfigYAML struct {
	BaseResistance   float64 `yaml:"baseResistance"`
	DecayRate        float64 `yaml:"decayRate"`
	ScarFactor       float64 `yaml:"scarFactor"`
	DampingFactor    float64 `yaml:"dampingFactor"`
	CriticalPressure float64 `yaml:"criticalPressure"`
	BreakMultiplier  float64 `yaml:"breakMultiplier"`
	BootstrapTicks   int     `yaml:"bootstrapTicks"`
	MinDeltaTMs      int64   `yaml:"minDeltaTMs"`
	TanhScale        float64 `yaml:"tanhScale"`
	StalenessKappa   float64 `yaml:"stalenessKappa"`
}

// AutoTunerConfigYAML mirrors autotune.Params with yaml tags. A nil
// AutoTuner in Document means the engine runs with only the static
// fallback threshold (spec.md §6's `autoTunerConfig|disabled`).
type AutoTunerConfigYAML struct {
	Window             int     `yaml:"window"`
	WarmupTicks        int     `yaml:"warmupTicks"`
	MinFloor           float64 `yaml:"minFloor"`
	HardCeiling        float64 `yaml:"hardCeiling"`
	RecoveryMultiplier float64 `yaml:"recoveryMultiplier"`
	Sensitivity        float64 `yaml:"sensitivity"`
}

// Document is the top-level shape of atrion's YAML config file.
type Document struct {
	DefaultVoltage float64              `yaml:"defaultVoltage"`
	KeyPrefix      string               `yaml:"keyPrefix"`
	SyncChannel    string               `yaml:"syncChannel"`
	Physics        PhysicsConfigYAML    `yaml:"physics"`
	AutoTuner      *AutoTunerConfigYAML `yaml:"autoTuner,omitempty"`
	Routes         []RouteConfig        `yaml:"routes"`
}

// Load reads and parses the YAML document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configio: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("configio: parse %s: %w", path, err)
	}
	return &doc, nil
}

// PhysicsConfig converts y into a config.PhysicsConfig, falling back to
// config.DefaultPhysicsConfig() field-by-field for any field that is zero
// or negative (for BreakMultiplier: 1 or below). ScarFactor and
// DampingFactor fall back only when negative, so a zero or omitted value
// yields 0 rather than the default.
func (y PhysicsConfigYAML) PhysicsConfig() config.PhysicsConfig {
	d := config.DefaultPhysicsConfig()
	cfg := d
	if y.BaseResistance > 0 {
		cfg.BaseResistance = y.BaseResistance
	}
	if y.DecayRate > 0 {
		cfg.DecayRate = y.DecayRate
	}
	if y.ScarFactor >= 0 {
		cfg.ScarFactor = y.ScarFactor
	}
	if y.DampingFactor >= 0 {
		cfg.DampingFactor = y.DampingFactor
	}
	if y.CriticalPressure > 0 {
		cfg.CriticalPressure = y.CriticalPressure
	}
	if y.BreakMultiplier > 1 {
		cfg.BreakMultiplier = y.BreakMultiplier
	}
	if y.BootstrapTicks > 0 {
		cfg.BootstrapTicks = y.BootstrapTicks
	}
	if y.MinDeltaTMs > 0 {
		cfg.MinDeltaTMs = y.MinDeltaTMs
	}
	if y.TanhScale > 0 {
		cfg.TanhScale = y.TanhScale
	}
	if y.StalenessKappa > 0 {
		cfg.StalenessKappa = y.StalenessKappa
	}
	return cfg
}

// AutoTunerParams converts y into autotune.Params.
func (y AutoTunerConfigYAML) AutoTunerParams() autotune.Params {
	return autotune.Params{
		Window:             y.Window,
		WarmupTicks:        y.WarmupTicks,
		MinFloor:           y.MinFloor,
		HardCeiling:        y.HardCeiling,
		RecoveryMultiplier: y.RecoveryMultiplier,
		Sensitivity:        y.Sensitivity,
	}
}

// Criticality converts a SLOCriticalityYAML into config.SLOCriticality.
func (y SLOCriticalityYAML) Criticality() config.SLOCriticality {
	return config.SLOCriticality{Latency: y.Latency, Error: y.Error, Saturation: y.Saturation}
}

// SLOTarget converts a SLOTargetYAML into config.SLOTarget.
func (y SLOTargetYAML) SLOTarget() config.SLOTarget {
	return config.SLOTarget{
		BaselineLatencyMs:  y.BaselineLatencyMs,
		TargetErrorRate:    y.TargetErrorRate,
		BaselineSaturation: y.BaselineSaturation,
	}
}

// WorkloadProfile parses RouteConfig's free-form YAML profile string into a
// config.WorkloadProfile. An empty or unrecognized name falls back to
// ProfileStandard, matching config.ProfileSpecFor's own fallback for an
// unknown profile value.
func (c RouteConfig) WorkloadProfile() config.WorkloadProfile {
	switch strings.ToUpper(strings.TrimSpace(c.Profile)) {
	case "LIGHT":
		return config.ProfileLight
	case "STANDARD", "":
		return config.ProfileStandard
	case "HEAVY":
		return config.ProfileHeavy
	case "EXTREME":
		return config.ProfileExtreme
	case "CUSTOM":
		return config.ProfileCustom
	default:
		return config.ProfileStandard
	}
}
