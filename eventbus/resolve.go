package eventbus

import (
	"context"
	"encoding/json"
	"math"
	"reflect"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// Keys recognised in map inputs passed to RegisterAny.
const (
	KeyPriority = "priority"
	KeyHandler  = "handler"
)

// flatten spreads list inputs into their items; any other value is a single item.
func flatten(input any) []any {
	switch v := input.(type) {
	case nil:
		return []any{nil}
	case cbus.Input:
		entries := v.Entries()
		out := make([]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, e)
		}

		return out
	case []any:
		return v
	}

	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{input}
	}

	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, rv.Index(i).Interface())
	}

	return out
}

// resolveEntry decides between the entry and bare-handler variants.
// Only the presence of a priority marks an entry; everything else is a handler at priority 0.
func resolveEntry(eventName string, index int, item any) (cbus.Entry, error) {
	switch v := item.(type) {
	case cbus.Entry:
		return checkEntry(eventName, index, v)
	case *cbus.Entry:
		if v == nil {
			return checkEntry(eventName, index, cbus.Entry{})
		}

		return checkEntry(eventName, index, *v)
	case map[string]any:
		raw, ok := v[KeyPriority]
		if !ok {
			break
		}

		priority, reason := priorityOf(raw)
		if reason != "" {
			return cbus.Entry{}, invalid(berr.ErrCodeInvalidPriority, eventName, index, reason)
		}

		h, ok := handlerOf(v[KeyHandler])
		if !ok {
			return cbus.Entry{}, invalid(berr.ErrCodeInvalidHandler, eventName, index, berr.ReasonHandlerNotFunction)
		}

		return cbus.Entry{Priority: priority, Handler: h}, nil
	}

	h, ok := handlerOf(item)
	if !ok {
		return cbus.Entry{}, invalid(berr.ErrCodeInvalidHandler, eventName, index, berr.ReasonHandlerNotFunction)
	}

	return cbus.Entry{Priority: 0, Handler: h}, nil
}

// handlerOf accepts the handler shapes callers commonly write.
func handlerOf(v any) (cbus.Handler, bool) {
	var h cbus.Handler

	switch fn := v.(type) {
	case cbus.Handler:
		h = fn
	case func(context.Context, any, string) error:
		h = fn
	case cbus.AsyncHandler:
		h = cbus.Await(fn)
	case func(context.Context, any, string) <-chan error:
		h = cbus.Await(fn)
	case func(context.Context, any) error:
		if fn != nil {
			h = func(ctx context.Context, data any, _ string) error { return fn(ctx, data) }
		}
	case func(any, string) error:
		if fn != nil {
			h = func(_ context.Context, data any, eventName string) error { return fn(data, eventName) }
		}
	case func(any) error:
		if fn != nil {
			h = func(_ context.Context, data any, _ string) error { return fn(data) }
		}
	case func(any, string):
		h = cbus.Sync(fn)
	case func(any):
		if fn != nil {
			h = cbus.Sync(func(data any, _ string) { fn(data) })
		}
	case func():
		if fn != nil {
			h = cbus.Sync(func(any, string) { fn() })
		}
	}

	return h, h != nil
}

// priorityOf coerces numeric values to an int priority.
// It returns a non-empty reason when v cannot be used.
func priorityOf(v any) (int, string) {
	switch n := v.(type) {
	case int:
		return n, ""
	case int8:
		return int(n), ""
	case int16:
		return int(n), ""
	case int32:
		return int(n), ""
	case int64:
		return int(n), ""
	case uint:
		return intFromUint(uint64(n))
	case uint8:
		return int(n), ""
	case uint16:
		return int(n), ""
	case uint32:
		return int(n), ""
	case uint64:
		return intFromUint(n)
	case float32:
		return intFromFloat(float64(n))
	case float64:
		return intFromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), ""
		}

		f, err := n.Float64()
		if err != nil {
			return 0, berr.ReasonPriorityNotNumber
		}

		return intFromFloat(f)
	}

	return 0, berr.ReasonPriorityNotNumber
}

func intFromFloat(f float64) (int, string) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt || f >= math.MaxInt {
		return 0, berr.ReasonPriorityNotInteger
	}

	return int(f), ""
}

func intFromUint(u uint64) (int, string) {
	if u > math.MaxInt {
		return 0, berr.ReasonPriorityNotInteger
	}

	return int(u), ""
}
