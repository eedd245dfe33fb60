package bus

import "context"

// Handler is invoked with the published data and the event name.
// A handler runs to completion before the next handler of the same publish starts.
type Handler func(ctx context.Context, data any, eventName string) error

// Entries makes a bare Handler an Input registered at priority 0.
func (h Handler) Entries() []Entry { return []Entry{{Priority: 0, Handler: h}} }

// Handlers is a list of bare handlers, each registered at priority 0.
type Handlers []Handler

func (hs Handlers) Entries() []Entry {
	out := make([]Entry, 0, len(hs))
	for _, h := range hs {
		out = append(out, Entry{Priority: 0, Handler: h})
	}

	return out
}

// Sync adapts a handler that cannot fail.
func Sync(fn func(data any, eventName string)) Handler {
	if fn == nil {
		return nil
	}

	return func(_ context.Context, data any, eventName string) error {
		fn(data, eventName)
		return nil
	}
}
