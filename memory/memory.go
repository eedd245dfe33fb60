package memory

import (
	"math"

	"github.com/next-trace/scg-event-bus/adapters/inmemory"
	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	"github.com/next-trace/scg-event-bus/eventbus"
)

// New constructs an event bus with an in-memory recorder subscribed to events at the
// lowest priority, so it sees every event that reached the end of dispatch.
// The cleanup func drops what was recorded.
func New(events ...string) (cbus.Bus, *inmemory.Recorder, func()) { //nolint:ireturn
	rec := inmemory.New()

	initial := make(map[string][]cbus.Entry, len(events))
	for _, name := range events {
		initial[name] = []cbus.Entry{cbus.WithPriority(math.MinInt, rec.Handler())}
	}

	b, err := eventbus.New(initial, eventbus.WithName("memory"))
	if err != nil {
		// the recorder handler is never nil
		panic(err)
	}

	return b, rec, rec.Reset
}
