package config

// WorkloadProfile names one of the authoritative profile table rows from
// spec.md §4.7.
type WorkloadProfile int

const (
	ProfileLight WorkloadProfile = iota
	ProfileStandard
	ProfileHeavy
	ProfileExtreme
	ProfileCustom
)

func (p WorkloadProfile) String() string {
	switch p {
	case ProfileLight:
		return "LIGHT"
	case ProfileStandard:
		return "STANDARD"
	case ProfileHeavy:
		return "HEAVY"
	case ProfileExtreme:
		return "EXTREME"
	case ProfileCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// ProfileSpec is one row of the workload profile table.
type ProfileSpec struct {
	BaselineLatencyMs        int64
	MaxDurationMs             int64
	HeartbeatRequired         bool
	HeartbeatIntervalMs       int64
	ScarMultiplier            float64
	RequiresCancellationSignal bool
}

// profileTable is the authoritative table from spec.md §4.7. CUSTOM is not
// present here: its concrete values default to STANDARD's and are
// overridable by the caller at lease-creation time.
var profileTable = map[WorkloadProfile]ProfileSpec{
	ProfileLight: {
		BaselineLatencyMs:          10,
		MaxDurationMs:              1_000,
		HeartbeatRequired:          false,
		HeartbeatIntervalMs:        0,
		ScarMultiplier:             2.0,
		RequiresCancellationSignal: false,
	},
	ProfileStandard: {
		BaselineLatencyMs:          100,
		MaxDurationMs:              30_000,
		HeartbeatRequired:          false,
		HeartbeatIntervalMs:        0,
		ScarMultiplier:             1.0,
		RequiresCancellationSignal: false,
	},
	ProfileHeavy: {
		BaselineLatencyMs:          5_000,
		MaxDurationMs:              300_000,
		HeartbeatRequired:          true,
		HeartbeatIntervalMs:        5_000,
		ScarMultiplier:             0.5,
		RequiresCancellationSignal: true,
	},
	ProfileExtreme: {
		BaselineLatencyMs:          60_000,
		MaxDurationMs:              3_600_000,
		HeartbeatRequired:          true,
		HeartbeatIntervalMs:        10_000,
		ScarMultiplier:             0.2,
		RequiresCancellationSignal: true,
	},
}

// ProfileSpecFor returns the table row for p. Unknown profiles (including a
// zero-valued CUSTOM with no override) fall back to STANDARD, per
// spec.md §4.7's "Creating with an unknown profile falls back to STANDARD."
func ProfileSpecFor(p WorkloadProfile) ProfileSpec {
	if spec, ok := profileTable[p]; ok {
		return spec
	}
	return profileTable[ProfileStandard]
}
