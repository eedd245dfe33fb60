package bus

import (
	"context"

	"github.com/google/uuid"
)

// Forwarder hands a published event to an external transport (Kafka, NATS, RabbitMQ, in-memory).
// The bus never calls a Forwarder on its own; ForwardTo turns one into an ordinary handler.
type Forwarder interface {
	Forward(ctx context.Context, eventName string, data any, opts ForwardOptions) error
}

// ForwardTo returns a handler that forwards every event it receives through f.
// Each forwarded event gets a fresh ID unless opts already carries one.
func ForwardTo(f Forwarder, opts ForwardOptions) Handler {
	if f == nil {
		return nil
	}

	return func(ctx context.Context, data any, eventName string) error {
		o := opts
		if o.ID == "" {
			o.ID = uuid.NewString()
		}

		return f.Forward(ctx, eventName, data, o)
	}
}
