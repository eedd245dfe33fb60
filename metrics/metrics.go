// Package metrics exposes handler invocation counters and latencies as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	"github.com/next-trace/scg-event-bus/eventbus"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomePanic    = "panic"
	OutcomeCanceled = "canceled"
)

// Collector records one sample per handler invocation.
type Collector struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCollector registers the collectors on reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_invocations_total",
			Help:      "Event handler invocations by outcome.",
		}, []string{"bus", "event", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Event handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bus", "event"}),
	}

	for _, col := range []prometheus.Collector{c.invocations, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Middleware returns an eventbus.Middleware labelling samples with busName.
// Install it with eventbus.WithMiddleware. A panicking handler is counted as OutcomePanic
// and re-raised, so WithPanicRecovery still sees it.
func (c *Collector) Middleware(busName string) eventbus.Middleware {
	return func(next cbus.Handler) cbus.Handler {
		return func(ctx context.Context, data any, eventName string) (err error) {
			start := time.Now()
			panicked := true

			defer func() {
				c.duration.WithLabelValues(busName, eventName).Observe(time.Since(start).Seconds())

				outcome := outcomeOf(err)
				if panicked {
					outcome = OutcomePanic
				}

				c.invocations.WithLabelValues(busName, eventName, outcome).Inc()
			}()

			err = next(ctx, data, eventName)
			panicked = false

			return err
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
