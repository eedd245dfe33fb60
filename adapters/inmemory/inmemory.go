package inmemory

import (
	"context"
	"sync"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
)

// Record is one event seen by a Recorder.
type Record struct {
	Event   string
	Data    any
	Options cbus.ForwardOptions
}

// Recorder is a thread-safe in-memory cbus.Forwarder.
// It records forwarded events for testing and examples.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

var _ cbus.Forwarder = (*Recorder)(nil)

// New creates an empty Recorder.
func New() *Recorder { return &Recorder{} }

func (r *Recorder) Forward(ctx context.Context, eventName string, data any, opts cbus.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.records = append(r.records, Record{Event: eventName, Data: data, Options: opts})

	return nil
}

// Handler records every event it receives without forward options.
func (r *Recorder) Handler() cbus.Handler {
	return func(ctx context.Context, data any, eventName string) error {
		return r.Forward(ctx, eventName, data, cbus.ForwardOptions{})
	}
}

// FailWith makes later calls return err instead of recording. A nil err restores recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Records returns a copy of what was recorded, oldest first.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Record(nil), r.records...)
}

// Events returns the recorded event names, oldest first.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Event)
	}

	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}

// Reset drops every record.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
