package memory

import (
	"context"
	"errors"
	"testing"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
)

func TestNewMemoryBus_BasicFlow(t *testing.T) {
	b, rec, cleanup := New("user.created", "user.deleted")
	defer cleanup()

	ctx := context.Background()

	seen := 0
	if err := b.Register("user.created", cbus.WithPriority(-1_000_000, func(ctx context.Context, data any, eventName string) error {
		if rec.Len() != 0 {
			t.Errorf("recorder must run last")
		}

		seen++

		return nil
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := b.Publish(ctx, "user.created", "u1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := b.Emit(ctx, "user.deleted"); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if err := b.Emit(ctx, "not.watched"); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if seen != 1 {
		t.Fatalf("expected seen=1 got %d", seen)
	}

	got := rec.Records()
	if len(got) != 2 || got[0].Event != "user.created" || got[0].Data != "u1" || got[1].Event != "user.deleted" {
		t.Fatalf("records=%+v", got)
	}

	cleanup()

	if rec.Len() != 0 {
		t.Fatalf("cleanup must reset the recorder")
	}
}

func TestNewMemoryBus_AbortedEventNotRecorded(t *testing.T) {
	b, rec, cleanup := New("e")
	defer cleanup()

	boom := errors.New("boom")
	if err := b.Register("e", cbus.Handler(func(context.Context, any, string) error { return boom })); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := b.Emit(context.Background(), "e"); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if rec.Len() != 0 {
		t.Fatalf("aborted dispatch must not reach the recorder")
	}

	if entries := b.Entries()["e"]; len(entries) != 2 {
		t.Fatalf("entries=%d", len(entries))
	}
}
