// Package config builds named event buses from a JSON document.
//
// Example:
//
//	{
//	  "buses": [{
//	    "name": "default",
//	    "recover_panics": true,
//	    "bindings": {
//	      "user.created": [{"handler": "audit", "priority": 10}, {"handler": "mailer"}]
//	    }
//	  }]
//	}
//
// Handler names are looked up in a Catalog supplied by the program.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
	"github.com/next-trace/scg-event-bus/eventbus"
)

// Config lists the buses to build.
type Config struct {
	Buses []BusConfig `json:"buses"`
}

// BusConfig describes one bus and its bindings.
type BusConfig struct {
	Name               string               `json:"name"`
	ContinueOnError    bool                 `json:"continue_on_error"`
	AtomicRegistration bool                 `json:"atomic_registration"`
	RecoverPanics      bool                 `json:"recover_panics"`
	Bindings           map[string][]Binding `json:"bindings"`
}

// Binding attaches a catalog handler to an event.
// Priority is left as decoded. A binding without a priority key registers the bare
// handler; an explicit null is a priority and fails validation like any non-number.
type Binding struct {
	Handler     string `json:"handler"`
	Priority    any    `json:"priority,omitempty"`
	HasPriority bool   `json:"-"`
}

func (b *Binding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Handler  string          `json:"handler"`
		Priority json.RawMessage `json:"priority"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Binding{Handler: raw.Handler, HasPriority: raw.Priority != nil}
	if !b.HasPriority {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Priority))
	dec.UseNumber()

	return dec.Decode(&b.Priority)
}

func (b Binding) hasPriority() bool { return b.HasPriority || b.Priority != nil }

// Catalog maps handler names used in a Config to handlers.
type Catalog map[string]cbus.Handler

// FromJSON decodes a Config. Numbers are kept as json.Number.
func FromJSON(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a Config from r.
func Decode(r io.Reader) (*Config, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Load reads a Config from the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// BusName returns the configured name, defaulting to eventbus.DefaultBusName.
func (bc BusConfig) BusName() string {
	if bc.Name == "" {
		return eventbus.DefaultBusName
	}

	return bc.Name
}

// Options translates the flags of bc into bus options.
func (bc BusConfig) Options() []eventbus.Option {
	opts := []eventbus.Option{eventbus.WithName(bc.BusName())}

	if bc.ContinueOnError {
		opts = append(opts, eventbus.WithContinueOnError())
	}

	if bc.AtomicRegistration {
		opts = append(opts, eventbus.WithAtomicRegistration())
	}

	if bc.RecoverPanics {
		opts = append(opts, eventbus.WithPanicRecovery())
	}

	return opts
}

// Validate checks names only; priorities and handlers are checked by the bus on Build.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Buses))

	for _, bc := range c.Buses {
		name := bc.BusName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("config bus %q: %w", name, berr.ErrBusExists)
		}

		seen[name] = struct{}{}

		for event, bindings := range bc.Bindings {
			if event == "" {
				return fmt.Errorf("config bus %q: empty event name: %w", name, berr.ErrInvalidSubscription)
			}

			for i, b := range bindings {
				if b.Handler == "" {
					return fmt.Errorf("config bus %q event %q binding %d: empty handler name: %w",
						name, event, i, berr.ErrInvalidSubscription)
				}
			}
		}
	}

	return nil
}

// Build validates c and builds one bus per BusConfig. opts apply to every bus
// before its own flags. Unknown handler names fail with berr.ErrInvalidHandler.
func (c *Config) Build(catalog Catalog, opts ...eventbus.Option) (*eventbus.Set, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	buses := make([]*eventbus.Bus, 0, len(c.Buses))

	for _, bc := range c.Buses {
		b, err := eventbus.New(nil, append(append([]eventbus.Option(nil), opts...), bc.Options()...)...)
		if err != nil {
			return nil, fmt.Errorf("build bus %q: %w", bc.BusName(), err)
		}

		for _, event := range sortedEvents(bc.Bindings) {
			if err := b.RegisterAny(event, inputs(catalog, bc.Bindings[event])); err != nil {
				return nil, fmt.Errorf("build bus %q: %w", bc.BusName(), err)
			}
		}

		buses = append(buses, b)
	}

	return eventbus.NewSet(buses...)
}

func inputs(catalog Catalog, bindings []Binding) []any {
	out := make([]any, 0, len(bindings))

	for _, b := range bindings {
		h := catalog[b.Handler]

		if !b.hasPriority() {
			out = append(out, h)
			continue
		}

		out = append(out, map[string]any{
			eventbus.KeyPriority: b.Priority,
			eventbus.KeyHandler:  h,
		})
	}

	return out
}

func sortedEvents(m map[string][]Binding) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
