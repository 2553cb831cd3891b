package state

import (
	"context"
	"sync"
)

// MemoryProvider is the reference Provider implementation: a Cache plus the
// last-write-wins conflict rule, with no external dependency. It is the
// backend used by tests and by single-process deployments that don't need
// internal/syncprovider's network surface.
type MemoryProvider struct {
	mu        sync.Mutex
	connected bool
	cache     *Cache
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider constructs a disconnected MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{cache: NewCache()}
}

func (p *MemoryProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *MemoryProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *MemoryProvider) GetVector(ctx context.Context, routeID string) (PhysicsVector, bool, error) {
	v, ok := p.cache.Get(routeID)
	return v, ok, nil
}

// UpdateVector applies last-write-wins by LastTick: a write whose LastTick
// does not exceed the currently stored vector's is dropped rather than
// overwriting it, per spec.md §6.
func (p *MemoryProvider) UpdateVector(ctx context.Context, v PhysicsVector) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.cache.Get(v.RouteID)
	if ok && v.LastTick <= existing.LastTick {
		return nil
	}
	p.cache.Put(v)
	return nil
}

func (p *MemoryProvider) DeleteVector(ctx context.Context, routeID string) error {
	p.cache.Delete(routeID)
	return nil
}

func (p *MemoryProvider) ListRoutes(ctx context.Context) ([]string, error) {
	return p.cache.RouteIDs(), nil
}
