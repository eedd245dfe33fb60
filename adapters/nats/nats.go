package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// DefaultSubjectPrefix is prepended to the event name when no destination is given.
const DefaultSubjectPrefix = "events."

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter forwards events to NATS subjects through an injected Client.
type Adapter struct {
	Client        Client
	SubjectPrefix string
	Propagator    cbus.HeaderPropagator // optional
}

var _ cbus.Forwarder = (*Adapter)(nil)

// New creates a new NATS adapter with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c, SubjectPrefix: DefaultSubjectPrefix} }

// Forward publishes data as JSON to opts.Destination, or to SubjectPrefix+eventName.
func (a *Adapter) Forward(ctx context.Context, eventName string, data any, opts cbus.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats forward %q: %w", eventName, berr.ErrForwardFailed)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("nats forward %q serialize: %w", eventName, errors.Join(berr.ErrSerializationFailed, err))
	}

	headers := opts.MessageHeaders(eventName)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, headers)
	}

	if err := a.Client.Publish(a.subject(eventName, opts), body, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats forward %q publish: %w", eventName, errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

// Handler returns a handler forwarding every event it receives.
func (a *Adapter) Handler(opts cbus.ForwardOptions) cbus.Handler { return cbus.ForwardTo(a, opts) }

func (a *Adapter) subject(eventName string, o cbus.ForwardOptions) string {
	if o.Destination != "" {
		return o.Destination
	}

	return a.SubjectPrefix + eventName
}
