package eventbus

import (
	"context"
	"errors"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
)

// Chain publishes events in order and stops on the first error.
func (b *Bus) Chain(ctx context.Context, events ...cbus.Event) error {
	for _, e := range events {
		if err := b.publish(ctx, e.Name, e.Data); err != nil {
			return err
		}
	}

	return nil
}

// revive:disable:max-public-structs
// BatchOptions controls Batch execution behavior.
// OnProgress runs after every publish, failed or not.
// OnError runs for each failed publish.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, event cbus.Event, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt {
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, event cbus.Event, err error)) BatchOpt {
	return func(o *BatchOptions) { o.OnError = fn }
}

// Batch publishes events sequentially and joins their errors.
// It stops early once ctx is done.
func (b *Bus) Batch(ctx context.Context, events []cbus.Event, opts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	total := len(events)

	var errs []error

	for i, e := range events {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return errors.Join(append(errs, err)...)
		}

		err := b.publish(ctx, e.Name, e.Data)
		if err != nil {
			if o.OnError != nil {
				o.OnError(i, e, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return errors.Join(errs...)
}
