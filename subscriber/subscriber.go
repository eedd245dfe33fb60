package subscriber

import (
	"fmt"
	"slices"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
	"github.com/next-trace/scg-event-bus/eventbus"
)

// Subscription binds one handler to one or more events on a named bus.
//
// Events are registered at Priority; Priorities adds events with their own priority.
// An empty Bus targets eventbus.DefaultBusName.
type Subscription struct {
	Events     []string
	Priorities map[string]int
	Priority   int
	Bus        string
	Handler    cbus.Handler
}

// On subscribes h to a single event at priority 0.
func On(eventName string, h cbus.Handler) Subscription {
	return Subscription{Events: []string{eventName}, Handler: h}
}

// OnEach subscribes h to every listed event.
func OnEach(eventNames []string, h cbus.Handler) Subscription {
	return Subscription{Events: slices.Clone(eventNames), Handler: h}
}

// OnPriorities subscribes h to each event with its own priority.
func OnPriorities(priorities map[string]int, h cbus.Handler) Subscription {
	p := make(map[string]int, len(priorities))
	for k, v := range priorities {
		p[k] = v
	}

	return Subscription{Priorities: p, Handler: h}
}

// WithPriority sets the priority used for Events.
func (s Subscription) WithPriority(priority int) Subscription {
	s.Priority = priority
	return s
}

// OnBus targets the bus registered under name.
func (s Subscription) OnBus(name string) Subscription {
	s.Bus = name
	return s
}

// BusName returns the target bus, defaulting to eventbus.DefaultBusName.
func (s Subscription) BusName() string {
	if s.Bus == "" {
		return eventbus.DefaultBusName
	}

	return s.Bus
}

// Subscriber exposes the subscriptions of a component.
type Subscriber interface {
	Subscriptions() []Subscription
}

// Func adapts a function to Subscriber.
type Func func() []Subscription

func (f Func) Subscriptions() []Subscription { return f() }

// Of wraps fixed subscriptions as a Subscriber.
func Of(subs ...Subscription) Subscriber {
	return Func(func() []Subscription { return subs })
}

type target struct {
	event string
	entry cbus.Entry
}

func (s Subscription) targets() ([]target, error) {
	if len(s.Events) == 0 && len(s.Priorities) == 0 {
		return nil, fmt.Errorf("subscription on bus %q has no events: %w", s.BusName(), berr.ErrInvalidSubscription)
	}

	out := make([]target, 0, len(s.Events)+len(s.Priorities))

	for _, name := range s.Events {
		if name == "" {
			return nil, fmt.Errorf("subscription on bus %q: empty event name: %w", s.BusName(), berr.ErrInvalidSubscription)
		}

		out = append(out, target{event: name, entry: cbus.WithPriority(s.Priority, s.Handler)})
	}

	names := make([]string, 0, len(s.Priorities))
	for name := range s.Priorities {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("subscription on bus %q: empty event name: %w", s.BusName(), berr.ErrInvalidSubscription)
		}

		out = append(out, target{event: name, entry: cbus.WithPriority(s.Priorities[name], s.Handler)})
	}

	return out, nil
}
