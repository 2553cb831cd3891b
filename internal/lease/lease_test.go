package lease

import (
	"testing"
	"time"

	"atrion/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaseRejectsHeavyWithoutCancellation(t *testing.T) {
	_, err := NewLease(NewLeaseOptions{
		ID: "l1", RouteID: "r1", Profile: config.ProfileHeavy, Clock: newFakeClock(),
	})
	assert.ErrorIs(t, err, ErrMissingCancellationSignal)
}

func TestNewLeaseAcceptsHeavyWithCancellation(t *testing.T) {
	l, err := NewLease(NewLeaseOptions{
		ID: "l1", RouteID: "r1", Profile: config.ProfileHeavy, Clock: newFakeClock(), Cancel: func() {},
	})
	require.NoError(t, err)
	assert.Equal(t, Active, l.State())
}

func TestCompleteIsIdempotent(t *testing.T) {
	l, err := NewLease(NewLeaseOptions{ID: "l1", RouteID: "r1", Profile: config.ProfileStandard, Clock: newFakeClock()})
	require.NoError(t, err)

	require.NoError(t, l.Complete())
	assert.Equal(t, Completed, l.State())

	err = l.Complete()
	assert.ErrorIs(t, err, ErrLeaseNotActive)
	assert.Equal(t, Completed, l.State(), "second Complete must not change state")
}

func TestFailAfterCompleteIsRejected(t *testing.T) {
	l, err := NewLease(NewLeaseOptions{ID: "l1", RouteID: "r1", Profile: config.ProfileStandard, Clock: newFakeClock()})
	require.NoError(t, err)
	require.NoError(t, l.Complete())
	assert.ErrorIs(t, l.Fail(), ErrLeaseNotActive)
}

// TestExpirationFiresTimeout is scenario S5 from spec.md §8: a lease whose
// expiry timer fires before Complete/Fail/Abort transitions to TimedOut,
// firing its cancellation signal.
func TestExpirationFiresTimeout(t *testing.T) {
	clock := newFakeClock()
	var events []Event
	canceled := false
	l, err := NewLease(NewLeaseOptions{
		ID: "l1", RouteID: "r1", Profile: config.ProfileHeavy, Clock: clock,
		Cancel:  func() { canceled = true },
		OnEvent: func(e Event) { events = append(events, e) },
	})
	require.NoError(t, err)

	l.expiryTimer.(*fakeTimer).Fire()
	require.Eventually(t, func() bool { return l.State() == TimedOut }, time.Second, time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, TimedOut, events[0].To)
	assert.True(t, canceled, "cancellation signal must fire on timeout")

	assert.ErrorIs(t, l.Release(Completed), ErrLeaseNotActive, "release after timeout must be a no-op")
	assert.ErrorIs(t, l.Heartbeat(), ErrLeaseNotActive)
}

// TestHeartbeatWatchdogFiresTimeoutAfterGracePeriod exercises spec.md
// §4.7's watchdog: firing the 2*interval timer once, with no heartbeat and
// elapsed time still under 3*interval, must NOT time out the lease; only
// once elapsed time crosses the grace period does the watchdog act.
func TestHeartbeatWatchdogFiresTimeoutAfterGracePeriod(t *testing.T) {
	clock := newFakeClock()
	l, err := NewLease(NewLeaseOptions{
		ID: "l1", RouteID: "r1", Profile: config.ProfileHeavy, Clock: clock, Cancel: func() {},
	})
	require.NoError(t, err)

	interval := time.Duration(l.Spec.HeartbeatIntervalMs) * time.Millisecond

	// First firing: only 2*interval has elapsed, under the 3*interval grace
	// period, so the watchdog re-arms rather than timing out.
	clock.Advance(2 * interval)
	l.heartbeatTimer.(*fakeTimer).Fire()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, Active, l.State())

	// Second firing pushes total elapsed past 3*interval.
	clock.Advance(2 * interval)
	l.heartbeatTimer.(*fakeTimer).Fire()
	require.Eventually(t, func() bool { return l.State() == TimedOut }, time.Second, time.Millisecond)
}

func TestHeartbeatResetsWatchdogWithoutError(t *testing.T) {
	clock := newFakeClock()
	l, err := NewLease(NewLeaseOptions{
		ID: "l1", RouteID: "r1", Profile: config.ProfileHeavy, Clock: clock, Cancel: func() {},
	})
	require.NoError(t, err)
	assert.NoError(t, l.Heartbeat(0.5))
	assert.Equal(t, 0.5, l.Progress())
}

func TestHeartbeatAfterTerminalReturnsError(t *testing.T) {
	l, err := NewLease(NewLeaseOptions{ID: "l1", RouteID: "r1", Profile: config.ProfileStandard, Clock: newFakeClock()})
	require.NoError(t, err)
	require.NoError(t, l.Complete())
	assert.ErrorIs(t, l.Heartbeat(), ErrLeaseNotActive)
}

func TestPendingScarPenaltyByTerminalState(t *testing.T) {
	mkLease := func() *TaskLease {
		l, err := NewLease(NewLeaseOptions{ID: "l1", RouteID: "r1", Profile: config.ProfileStandard, Clock: newFakeClock()})
		require.NoError(t, err)
		return l
	}

	completed := mkLease()
	require.NoError(t, completed.Complete())
	assert.Equal(t, 0.0, completed.PendingScarPenalty(5))

	failed := mkLease()
	require.NoError(t, failed.Fail())
	assert.Equal(t, 5.0*failed.Spec.ScarMultiplier, failed.PendingScarPenalty(5))

	timedOut := mkLease()
	timedOut.expiryTimer.(*fakeTimer).Fire()
	require.Eventually(t, func() bool { return timedOut.State() == TimedOut }, time.Second, time.Millisecond)
	assert.Equal(t, 5.0*timedOut.Spec.ScarMultiplier*1.5, timedOut.PendingScarPenalty(5))
}
