package rabbitmq

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-event-bus/contract/errors"
)

// Concrete AMQP connection-backed constructor and publisher wrapper with auto-reconnect.

const (
	// DefaultConnTimeout bounds dialing and the AMQP handshake when Config.ConnTimeout is unset.
	DefaultConnTimeout = 30 * time.Second

	exchangeKind = "topic"
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
)

type Config struct {
	URL         string
	Exchange    string
	ConnTimeout time.Duration
}

// connTimeout is never zero: amqp.DefaultDial uses it as the handshake deadline too.
func (cfg Config) connTimeout() time.Duration {
	if cfg.ConnTimeout <= 0 {
		return DefaultConnTimeout
	}

	return cfg.ConnTimeout
}

func (cfg Config) exchange() string {
	if cfg.Exchange == "" {
		return DefaultExchange
	}

	return cfg.Exchange
}

// session is one live connection+channel pair.
type session interface {
	publish(ctx context.Context, m PubMsg) error
	done() <-chan struct{}
	close()
}

type amqpSession struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan struct{}
}

func dialAMQP(cfg Config) (session, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-event-bus"},
		Dial:       amqp.DefaultDial(cfg.connTimeout()),
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(cfg.exchange(), exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	s := &amqpSession{conn: conn, ch: ch, closed: make(chan struct{})}
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		select {
		case <-connClosed:
		case <-chClosed:
		}

		close(s.closed)
	}()

	return s, nil
}

func (s *amqpSession) publish(ctx context.Context, m PubMsg) error {
	return s.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Persistent))
}

func (s *amqpSession) done() <-chan struct{} { return s.closed }

func (s *amqpSession) close() {
	_ = s.ch.Close()
	_ = s.conn.Close()
}

type reconnectingPublisher struct {
	dial func() (session, error)

	mu    sync.Mutex
	sess  session
	ready chan struct{} // closed once sess is set

	closed    chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newReconnectingPublisher(dial func() (session, error)) *reconnectingPublisher {
	rp := &reconnectingPublisher{
		dial:    dial,
		ready:   make(chan struct{}),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go rp.run()

	return rp
}

func (rp *reconnectingPublisher) current() (session, <-chan struct{}) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	return rp.sess, rp.ready
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	for {
		sess, ready := rp.current()
		if sess != nil {
			return sess.publish(ctx, m)
		}

		select {
		case <-ready:
		case <-rp.closed:
			return fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrForwardFailed)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (rp *reconnectingPublisher) run() {
	defer close(rp.stopped)

	backoff := minBackoff

	for {
		select {
		case <-rp.closed:
			return
		default:
		}

		sess, err := rp.dial()
		if err != nil {
			if !rp.wait(jitter(backoff)) {
				return
			}

			backoff = min(backoff*2, maxBackoff)

			continue
		}

		backoff = minBackoff

		rp.mu.Lock()
		rp.sess = sess
		close(rp.ready)
		rp.mu.Unlock()

		select {
		case <-rp.closed:
			rp.reset()
			sess.close()

			return
		case <-sess.done():
			rp.reset()
			sess.close()
		}
	}
}

// reset drops the current session; publishers block until the next one is ready.
func (rp *reconnectingPublisher) reset() {
	rp.mu.Lock()
	rp.sess = nil
	rp.ready = make(chan struct{})
	rp.mu.Unlock()
}

func (rp *reconnectingPublisher) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-rp.closed:
		return false
	case <-t.C:
		return true
	}
}

func (rp *reconnectingPublisher) close() {
	rp.closeOnce.Do(func() { close(rp.closed) })
	<-rp.stopped
}

func jitter(backoff time.Duration) time.Duration {
	if half := backoff / 2; half > 0 {
		backoff += rand.N(half)
	}

	return min(backoff, maxBackoff)
}

// NewWithAMQPConn dials RabbitMQ in the background with auto-reconnect, declares the exchange
// and returns an Adapter and a cleanup. Forward blocks until a connection is up or ctx ends.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrForwardFailed)
	}

	pub := newReconnectingPublisher(func() (session, error) { return dialAMQP(cfg) })

	ad := New(pub)
	ad.Exchange = cfg.exchange()

	return ad, pub.close, nil
}
