// Package lease implements TaskLease: the bookkeeping object a caller holds
// for the duration of one unit of work admitted onto a route, per
// spec.md §4.7. Its lifecycle (Active -> Completed/Failed/TimedOut/Aborted)
// and background watchdogs are grounded on
// jhkimqd-chaos-utils/pkg/emergency/controller.go's idempotent
// triggerStop-under-mutex + goroutines racing a timer/context shape,
// adapted from "one global emergency stop" to "one expiration + one
// heartbeat watchdog per lease".
package lease

import (
	"sync"
	"time"

	"atrion/internal/config"
)

// State is one of TaskLease's lifecycle states.
type State int

const (
	Active State = iota
	Completed
	Failed
	TimedOut
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	case TimedOut:
		return "TIMED_OUT"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// terminal reports whether s is one of the four states a lease cannot
// leave once entered.
func (s State) terminal() bool {
	return s == Completed || s == Failed || s == TimedOut || s == Aborted
}

// Event is delivered to a lease's onEvent callback whenever its state
// changes, so a Registry (or the engine façade) can react — e.g. folding
// PendingScarPenalty into the route's next physics tick.
type Event struct {
	LeaseID string
	RouteID string
	From    State
	To      State
}

// TaskLease is one outstanding unit of admitted work.
type TaskLease struct {
	ID      string
	RouteID string
	Profile config.WorkloadProfile
	Spec    config.ProfileSpec

	StartedAt time.Time
	ExpiresAt time.Time

	mu               sync.Mutex
	state            State
	lastHeartbeatAt  time.Time
	progress         float64

	clock          Clock
	expiryTimer    Timer
	heartbeatTimer Timer

	cancel  func()
	onEvent func(Event)
}

// NewLeaseOptions configures NewLease.
type NewLeaseOptions struct {
	ID      string
	RouteID string
	Profile config.WorkloadProfile
	Clock   Clock // defaults to RealClock{}

	// TimeoutMs overrides the profile's MaxDurationMs, if positive.
	TimeoutMs int64

	// Cancel is the caller-supplied cancellation signal: invoked when the
	// lease expires or its heartbeat watchdog fires, before the release
	// callback (OnEvent) returns, per spec.md §5. Required (non-nil) for
	// HEAVY/EXTREME profiles.
	Cancel func()

	OnEvent func(Event)
}

// NewLease constructs and starts a TaskLease: its expiration timer (and, for
// profiles that require one, its heartbeat watchdog) begin running
// immediately. Returns ErrMissingCancellationSignal if the profile demands a
// cancellation signal the caller didn't supply.
func NewLease(opts NewLeaseOptions) (*TaskLease, error) {
	spec := config.ProfileSpecFor(opts.Profile)
	if spec.RequiresCancellationSignal && opts.Cancel == nil {
		return nil, ErrMissingCancellationSignal
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}

	durationMs := spec.MaxDurationMs
	if opts.TimeoutMs > 0 {
		durationMs = opts.TimeoutMs
	}

	now := clock.Now()
	l := &TaskLease{
		ID:              opts.ID,
		RouteID:         opts.RouteID,
		Profile:         opts.Profile,
		Spec:            spec,
		StartedAt:       now,
		ExpiresAt:       now.Add(time.Duration(durationMs) * time.Millisecond),
		state:           Active,
		lastHeartbeatAt: now,
		clock:           clock,
		cancel:          opts.Cancel,
		onEvent:         opts.OnEvent,
	}

	l.expiryTimer = clock.NewTimer(time.Duration(durationMs) * time.Millisecond)
	go l.watchExpiry(l.expiryTimer)

	if spec.HeartbeatRequired {
		interval := time.Duration(spec.HeartbeatIntervalMs) * time.Millisecond
		l.heartbeatTimer = clock.NewTimer(2 * interval)
		go l.watchHeartbeat(l.heartbeatTimer, interval)
	}

	return l, nil
}

func (l *TaskLease) watchExpiry(timer Timer) {
	if _, ok := <-timer.C(); !ok {
		return
	}
	l.transition(TimedOut)
}

// watchHeartbeat implements spec.md §4.7's watchdog: every 2*interval it
// checks how long it has been since the last heartbeat; only when that
// exceeds the 3*interval grace period does it act as an expiration. A
// heartbeat inside the grace period just lets the loop re-arm and keep
// watching.
func (l *TaskLease) watchHeartbeat(timer Timer, interval time.Duration) {
	grace := 3 * interval
	for {
		if _, ok := <-timer.C(); !ok {
			return
		}
		if l.State().terminal() {
			return
		}
		l.mu.Lock()
		elapsed := l.clock.Now().Sub(l.lastHeartbeatAt)
		l.mu.Unlock()
		if elapsed > grace {
			l.transition(TimedOut)
			return
		}
		timer.Reset(2 * interval)
	}
}

// Heartbeat refreshes the lease's liveness deadline and optionally records
// progress in [0, 1]. Returns ErrLeaseNotActive if the lease has already
// terminated.
func (l *TaskLease) Heartbeat(progress ...float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.terminal() {
		return ErrLeaseNotActive
	}
	l.lastHeartbeatAt = l.clock.Now()
	if len(progress) > 0 {
		p := progress[0]
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		l.progress = p
	}
	return nil
}

// RemainingMs returns how many milliseconds remain before ExpiresAt,
// clamped to 0.
func (l *TaskLease) RemainingMs() int64 {
	remaining := l.ExpiresAt.Sub(l.clock.Now()).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns the last value reported via Heartbeat, or 0.
func (l *TaskLease) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

// Complete marks the lease Completed. Idempotent: calling it again (or
// after Fail/Abort/a timeout already fired) returns ErrLeaseNotActive
// without changing state, per spec.md §4.7's idempotent-release invariant
// (I8).
func (l *TaskLease) Complete() error { return l.transition(Completed) }

// Fail marks the lease Failed. Idempotent, same contract as Complete.
func (l *TaskLease) Fail() error { return l.transition(Failed) }

// Abort marks the lease Aborted. Idempotent, same contract as Complete.
func (l *TaskLease) Abort() error { return l.transition(Aborted) }

// Release transitions the lease to outcome. Unlike Complete/Fail/Abort it
// accepts any terminal State, so callers that already have an outcome in
// hand (e.g. the engine façade translating a StartTask caller's verdict)
// don't need a switch over which helper to call.
func (l *TaskLease) Release(outcome State) error { return l.transition(outcome) }

// transition is the single idempotent state-change path: only an Active
// lease can move to a terminal state, and only the first caller to win the
// mutex race actually performs the move and stops the watchdogs. When the
// destination is TimedOut, the cancellation signal (if any) fires before
// onEvent is invoked, per spec.md §5's "signal is aborted before the
// release callback returns".
func (l *TaskLease) transition(to State) error {
	l.mu.Lock()
	if l.state.terminal() {
		l.mu.Unlock()
		return ErrLeaseNotActive
	}
	from := l.state
	l.state = to
	if l.expiryTimer != nil {
		l.expiryTimer.Stop()
	}
	if l.heartbeatTimer != nil {
		l.heartbeatTimer.Stop()
	}
	cancel := l.cancel
	onEvent := l.onEvent
	l.mu.Unlock()

	if to == TimedOut && cancel != nil {
		cancel()
	}
	if onEvent != nil {
		onEvent(Event{LeaseID: l.ID, RouteID: l.RouteID, From: from, To: to})
	}
	return nil
}

// State returns the lease's current lifecycle state.
func (l *TaskLease) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// overrunFactor per spec.md §9's Open Question resolution: a TimedOut
// lease penalizes scar more heavily than a Failed one, since a timeout
// means the work actively overran its budget rather than erroring out
// promptly.
const (
	timedOutOverrunFactor = 1.5
	failedOverrunFactor   = 1.0
)

// PendingScarPenalty returns the extraScar amount physics.Tick should fold
// into the route's next tick, given the lease's terminal state. Returns 0
// for Completed/Aborted leases (no overrun) and for still-Active ones (not
// yet resolved).
func (l *TaskLease) PendingScarPenalty(scarFactor float64) float64 {
	switch l.State() {
	case TimedOut:
		return scarFactor * l.Spec.ScarMultiplier * timedOutOverrunFactor
	case Failed:
		return scarFactor * l.Spec.ScarMultiplier * failedOverrunFactor
	default:
		return 0
	}
}
