package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"atrion/internal/config"
	"atrion/internal/engine"
	"atrion/internal/lease"
	"atrion/internal/observe"
	"atrion/internal/pressure"
	"atrion/internal/state"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario>",
	Args:  cobra.ExactArgs(1),
	Short: "Run a canned admission-control scenario against an in-memory engine",
	Long: `simulate drives a single route through one of the named end-to-end
scenarios (spike, decay, breaker, flapping, lease-timeout, provider-lww)
using a virtual clock and an in-memory provider, then prints a summary of
what the run observed.`,
	RunE: runSimulate,
}

var scenarios = map[string]func() scenarioReport{
	"spike":         simulateSpike,
	"decay":         simulateDecay,
	"breaker":       simulateBreaker,
	"flapping":      simulateFlapping,
	"lease-timeout": simulateLeaseTimeout,
	"provider-lww":  simulateProviderLWW,
}

type scenarioReport struct {
	Name    string
	Lines   []string
	Passed  bool
	Summary string
}

func runSimulate(cmd *cobra.Command, args []string) error {
	name := args[0]
	run, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (known: spike, decay, breaker, flapping, lease-timeout, provider-lww)", name)
	}
	report := run()
	fmt.Printf("scenario: %s\n", report.Name)
	for _, l := range report.Lines {
		fmt.Printf("  %s\n", l)
	}
	status := "FAIL"
	if report.Passed {
		status = "PASS"
	}
	fmt.Printf("%s — %s\n", status, report.Summary)
	return nil
}

// simulateEngine builds a connected in-memory engine, bolts a collector
// onto it, and returns the engine, its virtual clock, and the collector.
func simulateEngine(physicsCfg config.PhysicsConfig, crit config.SLOCriticality, target config.SLOTarget) (*engine.Engine, *virtualClock, *observe.Collector) {
	clock := newVirtualClock()
	collector := observe.NewCollector()
	e := engine.New(engine.Options{
		Clock:              clock,
		Observer:           collector,
		PhysicsConfig:      physicsCfg,
		DefaultCriticality: crit,
		DefaultTarget:      target,
		DefaultVoltage:     1000,
	})
	if err := e.Connect(context.Background()); err != nil {
		panic(fmt.Sprintf("simulate: connect returned unexpected error: %v", err))
	}
	return e, clock, collector
}

func tickRoute(e *engine.Engine, clock *virtualClock, routeID string, spacing time.Duration, latency, errRate, saturation float64) engine.Decision {
	d, err := e.Route(context.Background(), routeID, pressure.RawTelemetry{
		LatencyMs:  latency,
		ErrorRate:  errRate,
		Saturation: saturation,
	}, engine.RouteOptions{})
	if err != nil {
		panic(fmt.Sprintf("route tick returned unexpected error: %v", err))
	}
	clock.Advance(spacing)
	return d
}

// simulateSpike models a transient error-rate spike: S1's resistance
// should climb, peak, and leave a lasting scar once the spike passes.
func simulateSpike() scenarioReport {
	crit := config.SLOCriticality{Latency: 5, Error: 10, Saturation: 5}
	target := config.SLOTarget{BaselineLatencyMs: 50, TargetErrorRate: 0.01, BaselineSaturation: 0.5}
	e, clock, _ := simulateEngine(config.DefaultPhysicsConfig(), crit, target)
	defer e.Close()

	var trace []float64
	for tick := 0; tick < 60; tick++ {
		errRate := 0.0
		if tick >= 20 && tick <= 29 {
			errRate = 0.8
		}
		d := tickRoute(e, clock, "checkout", 100*time.Millisecond, 50, errRate, 0)
		trace = append(trace, d.Resistance)
	}

	peak, peakTick := maxAt(trace)
	r18, r30, final := trace[18], trace[30], trace[len(trace)-1]
	passed := peakTick >= 19 && peakTick <= 35 && peak > 13 && r30 > r18 && final > 10
	return scenarioReport{
		Name: "spike",
		Lines: []string{
			fmt.Sprintf("peak resistance %.2f at tick %d", peak, peakTick),
			fmt.Sprintf("resistance at tick 18=%.2f tick 30=%.2f final=%.2f", r18, r30, final),
		},
		Passed:  passed,
		Summary: "transient error spike leaves a persistent resistance scar",
	}
}

// simulateDecay models recovery from a ramped latency/error excursion back
// toward baseline once inputs return to normal (S2).
func simulateDecay() scenarioReport {
	crit := config.SLOCriticality{Latency: 5, Error: 10, Saturation: 5}
	target := config.SLOTarget{BaselineLatencyMs: 50, TargetErrorRate: 0.01, BaselineSaturation: 0.5}
	cfg := config.DefaultPhysicsConfig()
	cfg.DecayRate = 3.0
	cfg.BootstrapTicks = 5
	e, clock, _ := simulateEngine(cfg, crit, target)
	defer e.Close()

	var scarTrace, resistanceTrace []float64
	for tick := 0; tick < 100; tick++ {
		var latency, errRate float64
		if tick <= 20 {
			frac := float64(tick) / 20
			latency = 50 + frac*100
			errRate = frac * 0.5
		} else {
			latency, errRate = 0, 0
		}
		tickRoute(e, clock, "checkout", 100*time.Millisecond, latency, errRate, 0)
		st, _ := e.GetState("checkout")
		scarTrace = append(scarTrace, st.ScarTissue)
		resistanceTrace = append(resistanceTrace, st.Resistance)
	}

	_, scarPeakTick := maxAt(scarTrace)
	finalR := resistanceTrace[len(resistanceTrace)-1]
	passed := scarPeakTick < 40 && finalR <= cfg.BaseResistance*1.5
	return scenarioReport{
		Name: "decay",
		Lines: []string{
			fmt.Sprintf("scar peaked at tick %d", scarPeakTick),
			fmt.Sprintf("final resistance %.2f (base %.2f)", finalR, cfg.BaseResistance),
		},
		Passed:  passed,
		Summary: "resistance decays back toward baseline once inputs normalize",
	}
}

// simulateBreaker models sustained extreme pressure tripping the circuit
// breaker and keeping it open (S3).
func simulateBreaker() scenarioReport {
	crit := config.SLOCriticality{Latency: 5, Error: 10, Saturation: 5}
	target := config.SLOTarget{BaselineLatencyMs: 50, TargetErrorRate: 0.01, BaselineSaturation: 0.5}
	cfg := config.DefaultPhysicsConfig()
	cfg.BreakMultiplier = 5
	cfg.ScarFactor = 10
	cfg.CriticalPressure = 0.3
	cfg.DecayRate = 0.5
	cfg.BootstrapTicks = 3
	e, clock, _ := simulateEngine(cfg, crit, target)
	defer e.Close()

	var modes []string
	var resistances []float64
	for tick := 0; tick < 30; tick++ {
		tickRoute(e, clock, "checkout", 100*time.Millisecond, 500, 0.9, 0.9)
		st, _ := e.GetState("checkout")
		modes = append(modes, st.Mode.String())
		resistances = append(resistances, st.Resistance)
	}

	trippedAt := -1
	stays := true
	for i, m := range modes {
		if m == "CIRCUIT_BREAKER" && trippedAt == -1 {
			trippedAt = i
		}
		if trippedAt != -1 && i >= trippedAt && m != "CIRCUIT_BREAKER" {
			stays = false
		}
	}
	minAtBreaker := math.Inf(1)
	if trippedAt != -1 {
		for i := trippedAt; i < len(modes); i++ {
			if modes[i] == "CIRCUIT_BREAKER" && resistances[i] < minAtBreaker {
				minAtBreaker = resistances[i]
			}
		}
	}
	passed := trippedAt != -1 && stays && minAtBreaker >= cfg.BreakMultiplier*cfg.BaseResistance
	return scenarioReport{
		Name: "breaker",
		Lines: []string{
			fmt.Sprintf("tripped at tick %d, stays open: %v", trippedAt, stays),
			fmt.Sprintf("minimum resistance while open %.2f (threshold %.2f)", minAtBreaker, cfg.BreakMultiplier*cfg.BaseResistance),
		},
		Passed:  passed,
		Summary: "sustained extreme pressure trips and holds the circuit breaker",
	}
}

// simulateFlapping compares the engine's mode-transition count against a
// naive binary breaker on the same oscillating-error trace (S4).
func simulateFlapping() scenarioReport {
	crit := config.SLOCriticality{Latency: 5, Error: 10, Saturation: 5}
	target := config.SLOTarget{BaselineLatencyMs: 50, TargetErrorRate: 0.01, BaselineSaturation: 0.5}
	e, clock, _ := simulateEngine(config.DefaultPhysicsConfig(), crit, target)
	defer e.Close()

	engineTransitions := 0
	var lastMode string
	naiveTransitions := 0
	naiveOpen := false
	naiveCooldown := 0

	for tick := 0; tick < 100; tick++ {
		errRate := 0.5 + 0.1*math.Sin(0.5*float64(tick))
		tickRoute(e, clock, "checkout", 100*time.Millisecond, 50, errRate, 0)
		st, _ := e.GetState("checkout")
		mode := st.Mode.String()
		if lastMode != "" && mode != lastMode {
			engineTransitions++
		}
		lastMode = mode

		if naiveOpen {
			if naiveCooldown > 0 {
				naiveCooldown--
			} else {
				naiveOpen = false
				naiveTransitions++
			}
		} else if errRate > 0.5 {
			naiveOpen = true
			naiveCooldown = 5
			naiveTransitions++
		}
	}

	passed := engineTransitions <= naiveTransitions
	return scenarioReport{
		Name: "flapping",
		Lines: []string{
			fmt.Sprintf("engine transitions: %d", engineTransitions),
			fmt.Sprintf("naive binary breaker transitions: %d", naiveTransitions),
		},
		Passed:  passed,
		Summary: "hysteresis keeps transition count at or below a naive threshold breaker",
	}
}

// simulateLeaseTimeout models a HEAVY lease that overruns its timeout and
// verifies the post-termination guard rails (S5).
func simulateLeaseTimeout() scenarioReport {
	e, clock, _ := simulateEngine(config.DefaultPhysicsConfig(), config.SLOCriticality{}, config.SLOTarget{})
	defer e.Close()

	e.RegisterRoute("ingest", engine.RouteOptions{})
	e.SetRouteProfile("ingest", config.ProfileHeavy)

	aborted := false
	l, err := e.StartTask("ingest", engine.StartTaskOptions{
		TimeoutMs: 1000,
		Cancel:    func() { aborted = true },
	})
	if err != nil {
		return scenarioReport{Name: "lease-timeout", Passed: false, Summary: fmt.Sprintf("StartTask failed: %v", err)}
	}

	clock.Advance(1001 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for l.State() != lease.TimedOut && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	completeErr := l.Complete()
	heartbeatErr := l.Heartbeat()

	passed := aborted && l.State() == lease.TimedOut && completeErr == lease.ErrLeaseNotActive && heartbeatErr == lease.ErrLeaseNotActive
	return scenarioReport{
		Name: "lease-timeout",
		Lines: []string{
			fmt.Sprintf("aborted=%v state=%s", aborted, l.State()),
			fmt.Sprintf("release-after-terminal err=%v heartbeat-after-terminal err=%v", completeErr, heartbeatErr),
		},
		Passed:  passed,
		Summary: "overrunning a HEAVY lease aborts its cancellation signal and locks out further operations",
	}
}

// simulateProviderLWW exercises the in-memory provider's last-write-wins
// conflict resolution directly, without the engine in the loop (S6).
func simulateProviderLWW() scenarioReport {
	provider := state.NewMemoryProvider()
	ctx := context.Background()

	write := func(tick int64) {
		_ = provider.UpdateVector(ctx, state.PhysicsVector{RouteID: "checkout", LastTick: tick})
	}
	write(10)
	write(12)
	write(11)

	v, ok, _ := provider.GetVector(ctx, "checkout")
	passed := ok && v.LastTick == 12
	return scenarioReport{
		Name: "provider-lww",
		Lines: []string{
			fmt.Sprintf("resolved lastTick=%d (writes were 10, 12, 11)", v.LastTick),
		},
		Passed:  passed,
		Summary: "last-write-wins resolves to the highest lastTick regardless of arrival order",
	}
}

func maxAt(trace []float64) (float64, int) {
	best, bestIdx := math.Inf(-1), -1
	for i, v := range trace {
		if v > best {
			best, bestIdx = v, i
		}
	}
	return best, bestIdx
}
