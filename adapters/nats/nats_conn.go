package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// Config holds the connection settings used by NewWithNATS.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ConnTimeout   time.Duration
	MaxReconnects int
}

type natsClient struct{ nc *nats.Conn }

func (c natsClient) Publish(subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.Flush()
}

func (cfg Config) options() []nats.Option {
	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	return opts
}

// NewWithNATS connects to NATS and returns an Adapter and a cleanup that drains the connection.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrForwardFailed)
	}

	nc, err := nats.Connect(cfg.URL, cfg.options()...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", berr.ErrForwardFailed, err)
	}

	ad := New(natsClient{nc: nc})
	if cfg.SubjectPrefix != "" {
		ad.SubjectPrefix = cfg.SubjectPrefix
	}

	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain() //nolint:errcheck // best-effort shutdown
			nc.Close()
		}
	}

	return ad, cleanup, nil
}
