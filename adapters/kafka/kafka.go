package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// DefaultTopicPrefix is prepended to the event name when no destination is given.
const DefaultTopicPrefix = "events."

// Writer is a minimal Kafka-like writer interface.
// NewWithKgo adapts a franz-go client; any other client can be wrapped the same way.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter forwards events to Kafka topics through an injected Writer.
type Adapter struct {
	Writer      Writer
	TopicPrefix string
}

var _ cbus.Forwarder = (*Adapter)(nil)

// New creates a new Kafka adapter with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w, TopicPrefix: DefaultTopicPrefix} }

// Forward writes data as JSON to opts.Destination, or to TopicPrefix+eventName, keyed by opts.Key.
func (a *Adapter) Forward(ctx context.Context, eventName string, data any, opts cbus.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka forward %q: %w", eventName, berr.ErrForwardFailed)
	}

	val, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("kafka forward %q serialize: %w", eventName, errors.Join(berr.ErrSerializationFailed, err))
	}

	var key []byte
	if opts.Key != "" {
		key = []byte(opts.Key)
	}

	if err = a.Writer.Write(ctx, a.topic(eventName, opts), key, val, opts.MessageHeaders(eventName)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka forward %q write: %w", eventName, errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

// Handler returns a handler forwarding every event it receives.
func (a *Adapter) Handler(opts cbus.ForwardOptions) cbus.Handler { return cbus.ForwardTo(a, opts) }

func (a *Adapter) topic(eventName string, o cbus.ForwardOptions) string {
	if o.Destination != "" {
		return o.Destination
	}

	return a.TopicPrefix + eventName
}
