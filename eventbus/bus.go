package eventbus

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// DefaultBusName names a bus built without WithName.
const DefaultBusName = "default"

// Bus is an in-process registry of prioritized handlers keyed by event name.
// Handlers of one publish run one after another, highest priority first.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	mu sync.RWMutex

	name   string
	events map[string][]cbus.Entry

	// global middleware, first registered runs outermost
	mw []Middleware

	atomic          bool
	continueOnError bool
	recoverPanics   bool

	logger *slog.Logger
}

var _ cbus.Bus = (*Bus)(nil)

// Option configures a Bus instance.
type Option func(*Bus)

// Middleware wraps every handler invocation.
type Middleware func(next cbus.Handler) cbus.Handler

// WithName sets the name used by Set and in log records.
func WithName(name string) Option {
	return func(b *Bus) { b.name = name }
}

// WithLogger sets the logger. A nil logger discards records.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithMiddleware registers global handler middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bus) { b.mw = append(b.mw, mw...) }
}

// WithAtomicRegistration makes a registration call all-or-nothing.
// By default entries preceding an invalid one in the same call stay registered.
func WithAtomicRegistration() Option {
	return func(b *Bus) { b.atomic = true }
}

// WithContinueOnError runs every handler of a publish and joins their errors.
// By default the first failing handler aborts the publish.
func WithContinueOnError() Option {
	return func(b *Bus) { b.continueOnError = true }
}

// WithPanicRecovery turns a panicking handler into a *berr.PanicError.
func WithPanicRecovery() Option {
	return func(b *Bus) { b.recoverPanics = true }
}

// New constructs a Bus seeded with initial. Seeding goes through Register,
// so an invalid entry fails construction the same way it fails registration.
func New(initial map[string][]cbus.Entry, opts ...Option) (*Bus, error) {
	b := &Bus{
		name:   DefaultBusName,
		events: make(map[string][]cbus.Entry),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}

	for _, eventName := range sortedKeys(initial) {
		if err := b.Register(eventName, cbus.EntryList(initial[eventName])); err != nil {
			return nil, fmt.Errorf("new bus %q: %w", b.name, err)
		}
	}

	return b, nil
}

// Name returns the bus name.
func (b *Bus) Name() string { return b.name }

// Register appends entries for eventName and re-sorts them by descending priority.
// Entries sharing a priority keep their registration order.
func (b *Bus) Register(eventName string, inputs ...cbus.Input) error {
	var entries []cbus.Entry
	for _, in := range inputs {
		if in == nil {
			entries = append(entries, cbus.Entry{})
			continue
		}

		entries = append(entries, in.Entries()...)
	}

	return b.insert(eventName, len(entries), func(i int) (cbus.Entry, error) {
		return checkEntry(eventName, i, entries[i])
	})
}

// RegisterAny registers a dynamically typed input: a handler func, an Entry,
// a map with "priority" and "handler" keys, or a slice of those.
// It is resolved into entries once and validated like Register.
func (b *Bus) RegisterAny(eventName string, input any) error {
	items := flatten(input)

	return b.insert(eventName, len(items), func(i int) (cbus.Entry, error) {
		return resolveEntry(eventName, i, items[i])
	})
}

func (b *Bus) insert(eventName string, n int, at func(i int) (cbus.Entry, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.atomic {
		resolved := make([]cbus.Entry, 0, n)

		for i := range n {
			e, err := at(i)
			if err != nil {
				return err
			}

			resolved = append(resolved, e)
		}

		b.store(eventName, append(b.events[eventName], resolved...))

		return nil
	}

	current := b.events[eventName]

	defer func() { b.store(eventName, current) }()

	for i := range n {
		e, err := at(i)
		if err != nil {
			return err
		}

		current = append(current, e)
	}

	return nil
}

// store must be called with mu held.
func (b *Bus) store(eventName string, entries []cbus.Entry) {
	if len(entries) == 0 {
		return
	}

	slices.SortStableFunc(entries, func(a, c cbus.Entry) int {
		return cmp.Compare(c.Priority, a.Priority)
	})

	b.events[eventName] = entries
	b.logger.Debug("handlers registered", "bus", b.name, "event", eventName, "count", len(entries))
}

// Publish invokes the handlers registered for eventName in priority order,
// waiting for each to return before starting the next. Unknown event names are a no-op.
// A handler error is returned as is and skips the remaining handlers.
func (b *Bus) Publish(ctx context.Context, eventName string, data any) error {
	return b.publish(ctx, eventName, data)
}

// Emit publishes eventName without a payload; handlers receive nil data.
func (b *Bus) Emit(ctx context.Context, eventName string) error {
	return b.publish(ctx, eventName, nil)
}

// PublishWithMiddleware publishes with additional per-call middleware.
func (b *Bus) PublishWithMiddleware(ctx context.Context, eventName string, data any, mws ...Middleware) error {
	return b.publish(ctx, eventName, data, mws...)
}

func (b *Bus) publish(ctx context.Context, eventName string, data any, mws ...Middleware) error {
	b.mu.RLock()
	entries := slices.Clone(b.events[eventName])
	chain := make([]Middleware, 0, len(b.mw)+len(mws))
	chain = append(chain, b.mw...)
	b.mu.RUnlock()

	if len(entries) == 0 {
		b.logger.DebugContext(ctx, "no handlers", "bus", b.name, "event", eventName)
		return nil
	}

	chain = append(chain, mws...)

	b.logger.DebugContext(ctx, "publish", "bus", b.name, "event", eventName, "handlers", len(entries))

	var errs []error

	for _, ent := range entries {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return errors.Join(append(errs, err)...)
		}

		err := b.invoke(ctx, ent, data, eventName, chain)
		if err == nil {
			continue
		}

		b.logger.WarnContext(ctx, "handler failed",
			"bus", b.name, "event", eventName, "priority", ent.Priority, "err", err)

		if !b.continueOnError {
			return err
		}

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (b *Bus) invoke(
	ctx context.Context,
	ent cbus.Entry,
	data any,
	eventName string,
	chain []Middleware,
) (err error) {
	if b.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = &berr.PanicError{
					Event:    eventName,
					Priority: ent.Priority,
					Value:    r,
					Stack:    string(debug.Stack()),
				}
			}
		}()
	}

	// Build chain so the first registered middleware runs first
	h := ent.Handler
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	return h(ctx, data, eventName)
}

// Entries returns a copy of the registry.
func (b *Bus) Entries() map[string][]cbus.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]cbus.Entry, len(b.events))
	for name, entries := range b.events {
		out[name] = slices.Clone(entries)
	}

	return out
}

// EntriesFor returns a copy of the ordered entries for eventName.
func (b *Bus) EntriesFor(eventName string) []cbus.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.events[eventName])
}

// Events returns the registered event names, sorted.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return sortedKeys(b.events)
}

func checkEntry(eventName string, index int, e cbus.Entry) (cbus.Entry, error) {
	if e.Handler == nil {
		return cbus.Entry{}, invalid(berr.ErrCodeInvalidHandler, eventName, index, berr.ReasonHandlerNotFunction)
	}

	return e, nil
}

func invalid(code, eventName string, index int, reason string) error {
	return &berr.ValidationError{Code: code, Event: eventName, Index: index, Reason: reason}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
