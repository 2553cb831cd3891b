package engine

import (
	"errors"

	"atrion/internal/lease"
)

// Sentinel errors matching the error codes spec.md §6 documents for the
// engine façade.
var (
	// ErrNotConnected is returned by operations that require Connect to have
	// succeeded first.
	ErrNotConnected = errors.New("engine: not connected")

	// ErrMissingDependency wraps a provider.Connect failure: the configured
	// state.Provider could not be reached.
	ErrMissingDependency = errors.New("engine: missing dependency")

	// ErrMissingCancellationSignal is internal/lease.ErrMissingCancellationSignal,
	// re-exported so callers driving StartTask don't need to import
	// internal/lease themselves just to compare errors.
	ErrMissingCancellationSignal = lease.ErrMissingCancellationSignal

	// ErrLeaseNotActive is internal/lease.ErrLeaseNotActive, re-exported
	// under the name spec.md §6 uses for the condition ("lease no longer
	// active").
	ErrLeaseNotActive = lease.ErrLeaseNotActive

	// ErrLeaseNotFound is internal/lease.ErrLeaseNotFound, re-exported.
	ErrLeaseNotFound = lease.ErrLeaseNotFound
)
