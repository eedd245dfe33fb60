package subscriber

import (
	"fmt"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	"github.com/next-trace/scg-event-bus/eventbus"
)

// Plan is the discovered registrations grouped by bus and event, in discovery order.
type Plan struct {
	buses []string
	byBus map[string]*busPlan
}

type busPlan struct {
	events  []string
	entries map[string][]cbus.Entry
}

// Build collects the subscriptions of subs into a Plan.
func Build(subs ...Subscriber) (*Plan, error) {
	p := &Plan{byBus: make(map[string]*busPlan)}

	for _, sub := range subs {
		if sub == nil {
			continue
		}

		for _, s := range sub.Subscriptions() {
			targets, err := s.targets()
			if err != nil {
				return nil, err
			}

			bp := p.bus(s.BusName())
			for _, t := range targets {
				if _, ok := bp.entries[t.event]; !ok {
					bp.events = append(bp.events, t.event)
				}

				bp.entries[t.event] = append(bp.entries[t.event], t.entry)
			}
		}
	}

	return p, nil
}

func (p *Plan) bus(name string) *busPlan {
	bp, ok := p.byBus[name]
	if !ok {
		bp = &busPlan{entries: make(map[string][]cbus.Entry)}
		p.byBus[name] = bp
		p.buses = append(p.buses, name)
	}

	return bp
}

// Buses returns the targeted bus names in discovery order.
func (p *Plan) Buses() []string { return append([]string(nil), p.buses...) }

// Entries returns the entries planned for bus, keyed by event name.
func (p *Plan) Entries(bus string) map[string][]cbus.Entry {
	bp, ok := p.byBus[bus]
	if !ok {
		return nil
	}

	out := make(map[string][]cbus.Entry, len(bp.entries))
	for name, entries := range bp.entries {
		out[name] = append([]cbus.Entry(nil), entries...)
	}

	return out
}

// Apply registers the entries planned for busName on b.
func (p *Plan) Apply(b cbus.Registrar, busName string) error {
	bp, ok := p.byBus[busName]
	if !ok {
		return nil
	}

	for _, event := range bp.events {
		if err := b.Register(event, cbus.EntryList(bp.entries[event])); err != nil {
			return fmt.Errorf("bus %q: %w", busName, err)
		}
	}

	return nil
}

// Discover registers every subscription of subs on its target bus in set.
// A subscription targeting a bus missing from set fails with berr.ErrBusNotFound.
func Discover(set *eventbus.Set, subs ...Subscriber) error {
	p, err := Build(subs...)
	if err != nil {
		return err
	}

	for _, name := range p.buses {
		b, err := set.Get(name)
		if err != nil {
			return err
		}

		if err := p.Apply(b, name); err != nil {
			return err
		}
	}

	return nil
}

// RegisterFor registers only the subscriptions of subs that target b; others are skipped.
func RegisterFor(b *eventbus.Bus, subs ...Subscriber) error {
	p, err := Build(subs...)
	if err != nil {
		return err
	}

	return p.Apply(b, b.Name())
}
