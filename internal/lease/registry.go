package lease

import "sync"

// Registry tracks every outstanding TaskLease an engine has issued, keyed
// by ID, and the per-route counts callers ask for via GetActiveTaskCount.
// spec.md §9 calls out the source's process-wide lease registry as the one
// piece of ambient mutable state worth isolating; this Registry is owned
// by a single engine instance rather than a package-level singleton.
type Registry struct {
	mu     sync.Mutex
	leases map[string]*TaskLease
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{leases: make(map[string]*TaskLease)}
}

// NewLease constructs a TaskLease via lease.NewLease and registers it,
// wrapping opts.OnEvent so the lease unregisters itself the moment it
// reaches a terminal state — per spec.md §4.7, "leases must be
// unregistered on release" covers both an explicit Complete/Fail/Abort
// call and an unattended expiry/heartbeat timeout.
func (r *Registry) NewLease(opts NewLeaseOptions) (*TaskLease, error) {
	userEvent := opts.OnEvent
	opts.OnEvent = func(e Event) {
		r.remove(e.LeaseID)
		if userEvent != nil {
			userEvent(e)
		}
	}
	l, err := NewLease(opts)
	if err != nil {
		return nil, err
	}
	r.add(l)
	return l, nil
}

func (r *Registry) add(l *TaskLease) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[l.ID] = l
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leases, id)
}

// Get returns the lease for id, if known and still registered.
func (r *Registry) Get(id string) (*TaskLease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[id]
	return l, ok
}

// Release looks up id and transitions it to outcome. It is idempotent end
// to end: releasing an unknown ID (already unregistered, whether by a
// prior Release or a watchdog timeout) returns ErrLeaseNotFound rather
// than panicking, matching spec.md §4.7 invariant I8.
func (r *Registry) Release(id string, outcome State) error {
	l, ok := r.Get(id)
	if !ok {
		return ErrLeaseNotFound
	}
	return l.Release(outcome)
}

// ActiveCount returns how many registered leases for routeID are still
// Active, per spec.md §6's getActiveTaskCount(routeId).
func (r *Registry) ActiveCount(routeID string) int {
	r.mu.Lock()
	leases := make([]*TaskLease, 0, len(r.leases))
	for _, l := range r.leases {
		if l.RouteID == routeID {
			leases = append(leases, l)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, l := range leases {
		if l.State() == Active {
			n++
		}
	}
	return n
}

// ClearAll forgets every registered lease without transitioning their
// state. Test-only hook for resetting registry state between cases.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases = make(map[string]*TaskLease)
}
