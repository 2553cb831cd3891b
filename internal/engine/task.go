package engine

import (
	"fmt"
	"sync/atomic"

	"atrion/internal/config"
	"atrion/internal/lease"
)

// taskSeq generates unique lease IDs when a caller doesn't supply one.
var taskSeq uint64

// StartTaskOptions configures StartTask.
type StartTaskOptions struct {
	// ID identifies the lease. Defaults to an engine-generated sequence
	// number if empty.
	ID string

	// TimeoutMs overrides the route's current profile's MaxDurationMs, if
	// positive.
	TimeoutMs int64

	// Cancel is the caller's cancellation signal, required for profiles
	// that set RequiresCancellationSignal (HEAVY/EXTREME by default).
	Cancel func()
}

// overrun scar factors, mirroring lease.TaskLease.PendingScarPenalty.
const (
	timedOutOverrunFactor = 1.5
	failedOverrunFactor   = 1.0
)

// StartTask admits one unit of work against routeID's current workload
// profile and returns a TaskLease the caller drives via Heartbeat/
// Complete/Fail/Abort, per spec.md §4.7 and §6's `engine.startTask(routeId,
// options)`. If the lease ends TimedOut or Failed, its overrun scar penalty
// is folded into routeID's pendingScar and applied on the route's next
// Route call, per spec.md §9's Open Question resolution on how lease
// overruns feed back into the physics core without the pure core itself
// ever touching a lease.
func (e *Engine) StartTask(routeID string, opts StartTaskOptions) (*lease.TaskLease, error) {
	if !e.Connected() {
		return nil, ErrNotConnected
	}
	r := e.routeFor(routeID, RouteOptions{})

	id := opts.ID
	if id == "" {
		n := atomic.AddUint64(&taskSeq, 1)
		id = fmt.Sprintf("%s-task-%d", routeID, n)
	}

	r.mu.Lock()
	profile := r.profile
	scarFactor := r.physics.ScarFactor
	r.mu.Unlock()

	profileSpec := config.ProfileSpecFor(profile)

	l, err := e.leases.NewLease(lease.NewLeaseOptions{
		ID:        id,
		RouteID:   routeID,
		Profile:   profile,
		Clock:     e.clock,
		TimeoutMs: opts.TimeoutMs,
		Cancel:    opts.Cancel,
		OnEvent: func(ev lease.Event) {
			e.onLeaseTerminal(r, ev, scarFactor, profileSpec)
		},
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// onLeaseTerminal folds a terminated lease's overrun penalty into r's
// pendingScar, consumed by the route's next Route call. The Registry
// unregisters a lease before invoking onEvent, so the penalty is computed
// here directly from the event's terminal state rather than by calling
// back into the (already unregistered) TaskLease.
func (e *Engine) onLeaseTerminal(r *routeEntry, ev lease.Event, scarFactor float64, spec config.ProfileSpec) {
	var factor float64
	switch ev.To {
	case lease.TimedOut:
		factor = timedOutOverrunFactor
	case lease.Failed:
		factor = failedOverrunFactor
	default:
		return
	}
	penalty := scarFactor * spec.ScarMultiplier * factor
	if penalty == 0 {
		return
	}
	r.mu.Lock()
	r.pendingScar += penalty
	r.mu.Unlock()
}
