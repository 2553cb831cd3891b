package observe

import "sync"

// Dispatcher is how internal/engine actually delivers events: Dispatch
// enqueues an Event and returns immediately, and a single background
// goroutine drains the queue into Inner, one event at a time. Two
// properties fall out of that single-goroutine-drain shape, both required
// by spec.md §5:
//
//   - Non-blocking: Dispatch never waits on an observer, so a slow or
//     misbehaving Observer can't stall physics.Tick.
//   - Ordered: events are delivered in the order they were enqueued, so
//     for any single route (whose ticks are themselves serialized by the
//     caller) observer events arrive in strict tick order.
//
// A panicking Observer is recovered inside the drain loop (see
// dispatchSafely) so it can never propagate back into the caller of
// Dispatch, let alone into the physics path that produced the event.
type Dispatcher struct {
	inner Observer
	queue chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher starts a Dispatcher delivering to inner. capacity bounds
// how many events may be queued before Dispatch starts dropping new
// events; 0 or negative falls back to a sane default so a caller can't
// accidentally construct an unbounded queue.
func NewDispatcher(inner Observer, capacity int) *Dispatcher {
	if inner == nil {
		inner = Silent
	}
	if capacity <= 0 {
		capacity = 1024
	}
	d := &Dispatcher{
		inner: inner,
		queue: make(chan Event, capacity),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		dispatchSafely(d.inner, e)
	}
}

// Dispatch enqueues e for delivery on the background goroutine. It never
// blocks: if the queue is full, e is dropped.
func (d *Dispatcher) Dispatch(e Event) {
	select {
	case d.queue <- e:
	default:
		// Queue is saturated: drop rather than block the caller, per
		// spec.md §5's "cannot suspend the caller" for physics updates.
		// A saturated observer queue is a sign the downstream sink is
		// falling behind, not a reason to stall admission control.
	}
}

// Close stops accepting new events and waits for the drain goroutine to
// finish delivering whatever was already queued.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.queue) })
	<-d.done
}
