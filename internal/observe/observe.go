// Package observe implements the observer-dispatch component (spec.md
// §4.8): a single-method event contract, a handful of composable
// convenience observers, and a Dispatcher that defers delivery off the
// synchronous physics path so an observer can never rethrow into it or
// influence a route's resistance. Grounded on
// yoghaf-market-indikator/internal/broadcast/server.go's Hub.run
// fan-out-to-many-channels shape, generalized from "broadcast snapshots to
// websocket clients" to "dispatch one event to N in-process observers,
// off the hot path".
package observe

// Decision mirrors the admit/shed/bootstrap outcome of the tick that
// produced an Event, independent of decision.Decision (which additionally
// carries a specific request's voltage).
type Decision string

const (
	DecisionBootstrap Decision = "BOOTSTRAP"
	DecisionFlow      Decision = "FLOW"
	DecisionShed      Decision = "SHED"
)

// ModeTransition records a from/to mode change, present on an Event only
// when the tick that produced it actually changed mode.
type ModeTransition struct {
	From string
	To   string
}

// Event is the logical shape spec.md §4.8 requires every completed physics
// update to emit exactly one of. Momentum is a pointer because it is
// undefined (absent) during Bootstrap.
type Event struct {
	RouteID           string
	Mode              string
	Resistance        float64
	Momentum          *float64
	ScarTissue        float64
	Decision          Decision
	DeltaTMs          int64
	Timestamp         int64
	PressureMagnitude float64
	TickCount         int64
	ModeTransition    *ModeTransition
}

// Observer is the single contract every event sink implements.
type Observer interface {
	OnUpdate(Event)
}

// Func adapts a plain function to an Observer.
type Func func(Event)

func (f Func) OnUpdate(e Event) { f(e) }

// silentObserver discards every event.
type silentObserver struct{}

func (silentObserver) OnUpdate(Event) {}

// Silent is an Observer that does nothing. Useful as a default so callers
// never need a nil check before dispatching.
var Silent Observer = silentObserver{}

// Composite fans an Event out to every inner observer, in order, on the
// calling goroutine. A panicking inner observer is recovered so one bad
// observer can't take down the others or, via a Dispatcher, the engine.
type Composite struct {
	observers []Observer
}

// NewComposite builds a Composite over observers.
func NewComposite(observers ...Observer) *Composite {
	return &Composite{observers: observers}
}

func (c *Composite) OnUpdate(e Event) {
	for _, o := range c.observers {
		dispatchSafely(o, e)
	}
}

// Add appends another observer to the fan-out set.
func (c *Composite) Add(o Observer) {
	c.observers = append(c.observers, o)
}

// Filtering wraps inner so only events matching Predicate reach it.
type Filtering struct {
	Predicate func(Event) bool
	Inner     Observer
}

// NewFiltering builds a Filtering observer.
func NewFiltering(predicate func(Event) bool, inner Observer) *Filtering {
	return &Filtering{Predicate: predicate, Inner: inner}
}

func (f *Filtering) OnUpdate(e Event) {
	if f.Predicate == nil || f.Predicate(e) {
		f.Inner.OnUpdate(e)
	}
}

func dispatchSafely(o Observer, e Event) {
	defer func() { recover() }()
	o.OnUpdate(e)
}
