package eventbus_test

import (
	"context"
	"errors"
	"testing"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
)

func TestChain_StopsOnFirstError(t *testing.T) {
	r := &recorder{}
	b := mustNew(t, nil)
	boom := errors.New("boom")

	_ = b.Register("a", r.handler("a"))
	_ = b.Register("b", cbus.Handler(func(context.Context, any, string) error { return boom }))
	_ = b.Register("c", r.handler("c"))

	err := b.Chain(t.Context(),
		cbus.Event{Name: "a", Data: 1},
		cbus.Event{Name: "unknown"},
		cbus.Event{Name: "b"},
		cbus.Event{Name: "c"},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if got := r.got(); !equal(got, []string{"a"}) {
		t.Fatalf("order=%v", got)
	}
}

func TestBatch_ProgressErrorsAndCancel(t *testing.T) {
	r := &recorder{}
	b := mustNew(t, nil)
	boom := errors.New("boom")

	_ = b.Register("ok", r.handler("ok"))
	_ = b.Register("bad", cbus.Handler(func(context.Context, any, string) error { return boom }))

	var (
		progress []int
		failed   []int
	)

	err := b.Batch(t.Context(),
		[]cbus.Event{{Name: "ok"}, {Name: "bad"}, {Name: "ok"}},
		eventbusProgress(&progress),
		eventbusOnError(&failed),
	)
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if !equal(progress, []int{1, 2, 3}) || !equal(failed, []int{1}) {
		t.Fatalf("progress=%v failed=%v", progress, failed)
	}

	if got := r.got(); !equal(got, []string{"ok", "ok"}) {
		t.Fatalf("order=%v", got)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := b.Batch(ctx, []cbus.Event{{Name: "ok"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
