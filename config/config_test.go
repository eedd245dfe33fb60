package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	berr "github.com/next-trace/scg-event-bus/contract/errors"
	"github.com/next-trace/scg-event-bus/config"
	"github.com/next-trace/scg-event-bus/eventbus"
)

type calls struct {
	mu  sync.Mutex
	got []string
}

func (c *calls) handler(name string) cbus.Handler {
	return func(ctx context.Context, data any, eventName string) error {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.got = append(c.got, name)

		return nil
	}
}

func (c *calls) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.got...)
}

const doc = `{
  "buses": [
    {
      "bindings": {
        "user.created": [
          {"handler": "mailer"},
          {"handler": "audit", "priority": 10},
          {"handler": "cleanup", "priority": -5}
        ]
      }
    },
    {
      "name": "audit",
      "continue_on_error": true,
      "recover_panics": true,
      "bindings": {"user.created": [{"handler": "audit", "priority": 1.0}]}
    }
  ]
}`

func TestBuild(t *testing.T) {
	c := &calls{}
	catalog := config.Catalog{
		"mailer":  c.handler("mailer"),
		"audit":   c.handler("audit"),
		"cleanup": c.handler("cleanup"),
	}

	cfg, err := config.FromJSON([]byte(doc))
	require.NoError(t, err)

	set, err := cfg.Build(catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", eventbus.DefaultBusName}, set.Names())

	def, err := set.Get(eventbus.DefaultBusName)
	require.NoError(t, err)

	require.NoError(t, def.Publish(t.Context(), "user.created", map[string]string{"id": "1"}))
	assert.Equal(t, []string{"audit", "mailer", "cleanup"}, c.list())

	audit, err := set.Get("audit")
	require.NoError(t, err)

	entries := audit.EntriesFor("user.created")
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Priority)
}

func TestBuild_PriorityNotANumber(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buses":[{"bindings":{"e":[{"handler":"h","priority":"x"}]}}]}`))
	require.NoError(t, err)

	_, err = cfg.Build(config.Catalog{"h": func(context.Context, any, string) error { return nil }})
	require.ErrorIs(t, err, berr.ErrInvalidPriority)

	var ve *berr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, berr.ReasonPriorityNotNumber, ve.Reason)
	assert.Equal(t, "e", ve.Event)
}

func TestBuild_NullPriorityRejected(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buses":[{"bindings":{"e":[{"handler":"h","priority":null}]}}]}`))
	require.NoError(t, err)
	require.True(t, cfg.Buses[0].Bindings["e"][0].HasPriority)

	_, err = cfg.Build(config.Catalog{"h": func(context.Context, any, string) error { return nil }})
	require.ErrorIs(t, err, berr.ErrInvalidPriority)

	var ve *berr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, berr.ReasonPriorityNotNumber, ve.Reason)
}

func TestBuild_MissingPriorityIsBareHandler(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buses":[{"bindings":{"e":[{"handler":"h"}]}}]}`))
	require.NoError(t, err)
	require.False(t, cfg.Buses[0].Bindings["e"][0].HasPriority)

	set, err := cfg.Build(config.Catalog{"h": func(context.Context, any, string) error { return nil }})
	require.NoError(t, err)

	b, err := set.Get(eventbus.DefaultBusName)
	require.NoError(t, err)

	entries := b.EntriesFor("e")
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Priority)
}

func TestBuild_PriorityNotAnInteger(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buses":[{"bindings":{"e":[{"handler":"h","priority":2.5}]}}]}`))
	require.NoError(t, err)

	_, err = cfg.Build(config.Catalog{"h": func(context.Context, any, string) error { return nil }})
	require.ErrorIs(t, err, berr.ErrInvalidPriority)
}

func TestBuild_UnknownHandler(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"buses":[{"bindings":{"e":[{"handler":"missing","priority":1}]}}]}`))
	require.NoError(t, err)

	_, err = cfg.Build(nil)
	require.ErrorIs(t, err, berr.ErrInvalidHandler)
}

func TestBuild_SharedOptions(t *testing.T) {
	cfg := &config.Config{Buses: []config.BusConfig{{Name: "x"}}}

	seen := false
	mw := func(next cbus.Handler) cbus.Handler {
		return func(ctx context.Context, data any, eventName string) error {
			seen = true
			return next(ctx, data, eventName)
		}
	}

	set, err := cfg.Build(nil, eventbus.WithMiddleware(mw))
	require.NoError(t, err)

	b, err := set.Get("x")
	require.NoError(t, err)
	require.NoError(t, b.Register("e", cbus.Sync(func(any, string) {})))
	require.NoError(t, b.Emit(t.Context(), "e"))
	assert.True(t, seen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want error
	}{
		{
			name: "duplicate bus",
			cfg:  config.Config{Buses: []config.BusConfig{{}, {Name: eventbus.DefaultBusName}}},
			want: berr.ErrBusExists,
		},
		{
			name: "empty event",
			cfg: config.Config{Buses: []config.BusConfig{{
				Bindings: map[string][]config.Binding{"": {{Handler: "h"}}},
			}}},
			want: berr.ErrInvalidSubscription,
		},
		{
			name: "empty handler",
			cfg: config.Config{Buses: []config.BusConfig{{
				Bindings: map[string][]config.Binding{"e": {{}}},
			}}},
			want: berr.ErrInvalidSubscription,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Buses, 2)
	assert.Equal(t, "audit", cfg.Buses[1].Name)
	assert.True(t, cfg.Buses[1].ContinueOnError)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestFromJSON_Malformed(t *testing.T) {
	_, err := config.FromJSON([]byte(`{"buses":`))
	require.Error(t, err)
}
