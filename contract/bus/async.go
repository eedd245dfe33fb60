package bus

import "context"

// AsyncHandler starts work and reports its completion on the returned channel.
// Closing the channel without a value counts as success.
type AsyncHandler func(ctx context.Context, data any, eventName string) <-chan error

// Await turns an AsyncHandler into a Handler that blocks until the work completes
// or ctx is done. A nil channel counts as already completed.
func Await(fn AsyncHandler) Handler {
	if fn == nil {
		return nil
	}

	return func(ctx context.Context, data any, eventName string) error {
		done := fn(ctx, data, eventName)
		if done == nil {
			return nil
		}

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Go runs fn on its own goroutine and exposes it as an AsyncHandler.
func Go(fn Handler) AsyncHandler {
	if fn == nil {
		return nil
	}

	return func(ctx context.Context, data any, eventName string) <-chan error {
		done := make(chan error, 1)

		go func() {
			done <- fn(ctx, data, eventName)
		}()

		return done
	}
}
