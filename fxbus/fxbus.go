// Package fxbus wires named event buses and their subscribers into an fx application.
package fxbus

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	"github.com/next-trace/scg-event-bus/eventbus"
	"github.com/next-trace/scg-event-bus/subscriber"
)

const (
	// BusesGroup is the value group every bus provided by Module joins.
	BusesGroup = "eventbus.buses"
	// SubscribersGroup is the value group scanned for subscriber.Subscriber values.
	SubscribersGroup = "eventbus.subscribers"
)

// NameTag returns the fx tag under which Module provides the bus called name.
func NameTag(name string) string { return fmt.Sprintf("name:%q", name) }

// Module provides a *eventbus.Bus tagged NameTag(name), adds it to BusesGroup and,
// on start, registers every SubscribersGroup subscription that targets it.
// A *slog.Logger in the graph is used unless opts set one.
func Module(name string, opts ...eventbus.Option) fx.Option {
	tag := NameTag(name)

	return fx.Module("eventbus."+name,
		fx.Provide(
			fx.Annotate(
				func(logger *slog.Logger) (*eventbus.Bus, error) {
					o := make([]eventbus.Option, 0, len(opts)+2)
					if logger != nil {
						o = append(o, eventbus.WithLogger(logger))
					}

					o = append(o, opts...)
					o = append(o, eventbus.WithName(name))

					return eventbus.New(nil, o...)
				},
				fx.ParamTags(`optional:"true"`),
				fx.ResultTags(tag),
			),
			fx.Annotate(
				func(b *eventbus.Bus) *eventbus.Bus { return b },
				fx.ParamTags(tag),
				fx.ResultTags(fmt.Sprintf("group:%q", BusesGroup)),
			),
		),
		fx.Invoke(
			fx.Annotate(
				registerSubscribers,
				fx.ParamTags(``, tag, fmt.Sprintf("group:%q", SubscribersGroup)),
			),
		),
	)
}

// Default is Module(eventbus.DefaultBusName); it also provides the bus untagged as cbus.Bus.
func Default(opts ...eventbus.Option) fx.Option {
	return fx.Options(
		Module(eventbus.DefaultBusName, opts...),
		fx.Provide(
			fx.Annotate(
				func(b *eventbus.Bus) cbus.Bus { return b },
				fx.ParamTags(NameTag(eventbus.DefaultBusName)),
			),
		),
	)
}

// AsSubscriber annotates ctor so its result joins SubscribersGroup.
// ctor must return a value implementing subscriber.Subscriber.
func AsSubscriber(ctor any) any {
	return fx.Annotate(
		ctor,
		fx.As(new(subscriber.Subscriber)),
		fx.ResultTags(fmt.Sprintf("group:%q", SubscribersGroup)),
	)
}

// SetModule provides a *eventbus.Set holding every bus of BusesGroup.
func SetModule() fx.Option {
	return fx.Module("eventbus.set",
		fx.Provide(
			fx.Annotate(
				func(buses []*eventbus.Bus) (*eventbus.Set, error) {
					return eventbus.NewSet(buses...)
				},
				fx.ParamTags(fmt.Sprintf("group:%q", BusesGroup)),
			),
		),
	)
}

func registerSubscribers(lc fx.Lifecycle, b *eventbus.Bus, subs []subscriber.Subscriber) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return subscriber.RegisterFor(b, subs...)
		},
	})
}
