package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// DefaultExchange is the topic exchange events are forwarded to.
const DefaultExchange = "events"

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter forwards events to an AMQP exchange, routed by event name.
type Adapter struct {
	Publisher  Publisher
	Exchange   string
	Propagator cbus.HeaderPropagator // optional, for context propagation into headers
}

var _ cbus.Forwarder = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p, Exchange: DefaultExchange} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cbus.HeaderPropagator) *Adapter {
	a := New(p)
	a.Propagator = hp

	return a
}

// Forward publishes data as JSON with routing key opts.Destination, or the event name.
func (a *Adapter) Forward(ctx context.Context, eventName string, data any, opts cbus.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq forward %q: %w", eventName, berr.ErrForwardFailed)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("rabbitmq forward %q serialize: %w", eventName, errors.Join(berr.ErrSerializationFailed, err))
	}

	// MessageHeaders returns a fresh map, so the propagator never touches caller headers
	hdrs := opts.MessageHeaders(eventName)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, hdrs)
	}

	msg := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: routingKey(eventName, opts),
		Body:       body,
		Headers:    hdrs,
	}
	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq forward %q publish: %w", eventName, errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

// Handler returns a handler forwarding every event it receives.
func (a *Adapter) Handler(opts cbus.ForwardOptions) cbus.Handler { return cbus.ForwardTo(a, opts) }

func routingKey(eventName string, o cbus.ForwardOptions) string {
	if o.Destination != "" {
		return o.Destination
	}

	return eventName
}

func publishing(m PubMsg, mode uint8) amqp.Publishing {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	p := amqp.Publishing{
		DeliveryMode: mode,
		Headers:      h,
		ContentType:  "application/json",
		Body:         m.Body,
	}

	if id, ok := m.Headers[cbus.HeaderEventID]; ok {
		p.MessageId = id
	}

	if t, ok := m.Headers[cbus.HeaderEventName]; ok {
		p.Type = t
	}

	return p
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Transient))
}

// NewWithAMQPChannel forwards through an already open channel; the caller owns its lifecycle.
func NewWithAMQPChannel(ch *amqp.Channel) *Adapter {
	return New(amqpChannelPublisher{ch: ch})
}
