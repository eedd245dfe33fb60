package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// SASL mechanisms understood by NewWithKgo.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA256 = "SCRAM-SHA-256"
	MechanismScramSHA512 = "SCRAM-SHA-512"
)

type SASLConfig struct {
	Mechanism string
	Username  string
	Password  string
}

type Config struct {
	Brokers     []string
	TopicPrefix string
	TLS         *tls.Config
	SASL        *SASLConfig
	Acks        kgo.Acks
	Idempotent  bool
	ClientID    string
	Compression kgo.CompressionCodec
}

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if len(headers) > 0 {
		rec.Headers = make([]kgo.RecordHeader, 0, len(headers))
		for k, v := range headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
	}

	return w.cl.ProduceSync(ctx, rec).FirstErr()
}

func (s *SASLConfig) mechanism() (sasl.Mechanism, error) {
	switch strings.ToUpper(s.Mechanism) {
	case MechanismPlain:
		return plain.Auth{User: s.Username, Pass: s.Password}.AsMechanism(), nil
	case MechanismScramSHA256:
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha256Mechanism(), nil
	case MechanismScramSHA512:
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported SASL mechanism %q", berr.ErrForwardFailed, s.Mechanism)
	}
}

func (cfg Config) options() ([]kgo.Opt, error) {
	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Brokers...)}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if !cfg.Idempotent {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}

	if cfg.Compression != (kgo.CompressionCodec{}) {
		opts = append(opts, kgo.ProducerBatchCompression(cfg.Compression))
	}

	if cfg.Acks != (kgo.Acks{}) {
		opts = append(opts, kgo.RequiredAcks(cfg.Acks))
	}

	if cfg.SASL != nil && cfg.SASL.Mechanism != "" {
		mech, err := cfg.SASL.mechanism()
		if err != nil {
			return nil, err
		}

		opts = append(opts, kgo.SASL(mech))
	}

	return opts, nil
}

// NewWithKgo builds a franz-go client based Adapter. The returned cleanup closes the client.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrForwardFailed)
	}

	opts, err := cfg.options()
	if err != nil {
		return nil, nil, err
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrForwardFailed, err)
	}

	ad := New(kgoWriter{cl: cl})
	if cfg.TopicPrefix != "" {
		ad.TopicPrefix = cfg.TopicPrefix
	}

	return ad, cl.Close, nil
}
