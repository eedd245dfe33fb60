package bus

import "context"

// Publisher publishes events to the handlers registered for them.
type Publisher interface {
	Publish(ctx context.Context, eventName string, data any) error
	Emit(ctx context.Context, eventName string) error
}

// Registrar registers handlers for an event name.
type Registrar interface {
	Register(eventName string, inputs ...Input) error
}
