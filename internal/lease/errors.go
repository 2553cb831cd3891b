package lease

import "errors"

// ErrMissingCancellationSignal is returned by NewLease when the requested
// profile's ProfileSpec.RequiresCancellationSignal is true (HEAVY, EXTREME)
// but the caller supplied no cancellation func — such a lease could run
// forever past its deadline with no way to actually stop the underlying
// work, per spec.md §4.7.
var ErrMissingCancellationSignal = errors.New("lease: profile requires a cancellation signal")

// ErrLeaseNotActive is returned by Complete/Fail/Abort/Heartbeat when the
// lease has already left the Active state. Callers that only care about
// idempotence should ignore this error rather than treat it as a failure.
var ErrLeaseNotActive = errors.New("lease: not active")

// ErrLeaseNotFound is returned by Registry.Release/Get for an unknown
// lease ID.
var ErrLeaseNotFound = errors.New("lease: not found")
