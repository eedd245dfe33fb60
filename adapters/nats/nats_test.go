package nats_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/next-trace/scg-event-bus/adapters/nats"
	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
	"github.com/next-trace/scg-event-bus/eventbus"
)

type published struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakeClient struct {
	calls []published
	err   error
}

func (f *fakeClient) Publish(subject string, data []byte, headers map[string]string) error {
	f.calls = append(f.calls, published{subject, data, headers})

	return f.err
}

type traceProp struct{}

func (traceProp) Inject(_ context.Context, h map[string]string) { h["traceparent"] = "00-abc" }

type order struct{ ID string }

func TestNATS_Forward(t *testing.T) {
	fc := &fakeClient{}
	ad := nats.New(fc)
	ad.Propagator = traceProp{}

	opts := cbus.ForwardOptions{Key: "k", ID: "id-1", Headers: map[string]string{"h1": "v1"}}
	if err := ad.Forward(t.Context(), "order.placed", order{ID: "1"}, opts); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if len(fc.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(fc.calls))
	}

	c := fc.calls[0]
	if c.subject != "events.order.placed" {
		t.Fatalf("subject mismatch: %s", c.subject)
	}

	var got order
	if err := json.Unmarshal(c.data, &got); err != nil || got.ID != "1" {
		t.Fatalf("body=%s err=%v", c.data, err)
	}

	want := map[string]string{
		"h1":                 "v1",
		cbus.HeaderKey:       "k",
		cbus.HeaderEventID:   "id-1",
		cbus.HeaderEventName: "order.placed",
		"traceparent":        "00-abc",
	}
	for k, v := range want {
		if c.headers[k] != v {
			t.Fatalf("header %q: want %q, got %q", k, v, c.headers[k])
		}
	}

	if _, leaked := opts.Headers["traceparent"]; leaked {
		t.Fatalf("caller headers must not be mutated")
	}
}

func TestNATS_DestinationOverride(t *testing.T) {
	fc := &fakeClient{}
	ad := nats.New(fc)

	if err := ad.Forward(t.Context(), "e", nil, cbus.ForwardOptions{Destination: "orders"}); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if fc.calls[0].subject != "orders" {
		t.Fatalf("subject=%v", fc.calls[0].subject)
	}
}

func TestNATS_NilClientError(t *testing.T) {
	ad := nats.New(nil)

	if err := ad.Forward(t.Context(), "e", nil, cbus.ForwardOptions{}); !errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want ErrForwardFailed, got %v", err)
	}
}

func TestNATS_ErrorWrapping_And_ContextCancel(t *testing.T) {
	ad := nats.New(&fakeClient{err: errors.New("boom")})

	if err := ad.Forward(t.Context(), "e", nil, cbus.ForwardOptions{}); !errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want ErrForwardFailed, got %v", err)
	}

	ad2 := nats.New(&fakeClient{err: context.Canceled})

	err := ad2.Forward(t.Context(), "e", nil, cbus.ForwardOptions{})
	if !errors.Is(err, context.Canceled) || errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want bare context.Canceled, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	fc := &fakeClient{}
	if err := nats.New(fc).Forward(ctx, "e", nil, cbus.ForwardOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}

	if len(fc.calls) != 0 {
		t.Fatalf("cancelled forward must not publish")
	}
}

func TestNATS_SerializationFailure(t *testing.T) {
	ad := nats.New(&fakeClient{})

	err := ad.Forward(t.Context(), "e", make(chan int), cbus.ForwardOptions{})
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}
}

func TestNATS_AsBusHandler(t *testing.T) {
	fc := &fakeClient{}

	b, err := eventbus.New(map[string][]cbus.Entry{
		"order.placed": {cbus.WithPriority(-100, nats.New(fc).Handler(cbus.ForwardOptions{}))},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := b.Publish(t.Context(), "order.placed", order{ID: "7"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fc.calls) != 1 || fc.calls[0].headers[cbus.HeaderEventID] == "" {
		t.Fatalf("calls=%+v", fc.calls)
	}
}
