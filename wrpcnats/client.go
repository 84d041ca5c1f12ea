package wrpcnats

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"

	"github.com/wrpc-go/wrpc/transport"
	"github.com/wrpc-go/wrpc/wrpclog"
)

// Client wraps a NATS connection as a transport.Subscriber,
// transport.Transmitter, transport.Invoker and transport.Acceptor, in the
// connection-management style of the example client this module is
// modeled on: functional nats.Option wiring, reconnect/error logging, and
// mutex-tracked subscriptions released on Close.
type Client struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription

	acceptMu sync.Mutex
	accept   map[string]*acceptor

	replayMu sync.Mutex
	replays  map[string][]byte
}

// NewClient connects to the NATS server described by cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("NATS address is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				wrpclog.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			wrpclog.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			wrpclog.Errorf("NATS error: %v", err)
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("NATS connect failed: %w", err)
	}
	wrpclog.Infof("NATS connected to %s", cfg.Address)

	return &Client{conn: nc, accept: make(map[string]*acceptor)}, nil
}

// Close unsubscribes everything tracked by the client and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			wrpclog.Warnf("NATS unsubscribe failed: %v", err)
		}
	}
	c.subs = nil
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		wrpclog.Info("NATS connection closed")
	}
}

// chanStream adapts a NATS channel subscription to transport.ByteStream.
// replay, if non-nil, is delivered once before the channel is drained
// further (used to hand the Accept-detected first params message back to
// the subscription the server actually reads params from).
type chanStream struct {
	ch     chan *nats.Msg
	replay []byte
	used   bool
}

func (s *chanStream) Recv(ctx context.Context) ([]byte, error) {
	if !s.used && s.replay != nil {
		s.used = true
		return s.replay, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return msg.Data, nil
	}
}

// Subscribe opens a buffered channel subscription on subject.
func (c *Client) Subscribe(ctx context.Context, subject transport.Subject) (transport.ByteStream, error) {
	subj, ok := subject.(Subject)
	if !ok {
		return nil, fmt.Errorf("wrpcnats: subject %v is not a wrpcnats.Subject", subject)
	}
	ch := make(chan *nats.Msg, 64)
	sub, err := c.conn.ChanSubscribe(subj.String(), ch)
	if err != nil {
		return nil, fmt.Errorf("NATS subscribe to %q failed: %w", subj, err)
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return &chanStream{ch: ch, replay: c.takeReplay(subj.String())}, nil
}

// takeReplay returns and clears any buffered first message previously
// consumed by an acceptor's wildcard watcher for this exact subject.
func (c *Client) takeReplay(subject string) []byte {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()
	data, ok := c.replays[subject]
	if !ok {
		return nil
	}
	delete(c.replays, subject)
	return data
}

// Transmit publishes payload on subject.
func (c *Client) Transmit(ctx context.Context, subject transport.Subject, payload []byte) error {
	subj, ok := subject.(Subject)
	if !ok {
		return fmt.Errorf("wrpcnats: subject %v is not a wrpcnats.Subject", subject)
	}
	if err := c.conn.Publish(subj.String(), payload); err != nil {
		return fmt.Errorf("NATS publish to %q failed: %w", subj, err)
	}
	return nil
}

// NewCall allocates a fresh root subject for one invocation of instance/name,
// keyed by a NUID so concurrent calls to the same export never collide.
func (c *Client) NewCall(ctx context.Context, instance, name string) (transport.Subject, error) {
	return Subject(fmt.Sprintf("%s.%s", Root(instance, name), nuid.Next())), nil
}

// acceptor watches for new invocations of one export by subscribing to
// the wildcard subject every call's params land on, and demultiplexes
// arrivals by call ID.
type acceptor struct {
	sub  *nats.Subscription
	msgs chan *nats.Msg
	new  chan *nats.Msg
	seen sync.Map // call ID -> struct{}
}

func (c *Client) acceptorFor(instance, name string) (*acceptor, error) {
	key := instance + "/" + name
	c.acceptMu.Lock()
	defer c.acceptMu.Unlock()
	if a, ok := c.accept[key]; ok {
		return a, nil
	}
	pattern := Root(instance, name).Child(nil).(Subject).Child(idxOne()).(Subject)
	ch := make(chan *nats.Msg, 256)
	sub, err := c.conn.ChanSubscribe(pattern.String(), ch)
	if err != nil {
		return nil, fmt.Errorf("NATS subscribe to %q failed: %w", pattern, err)
	}
	a := &acceptor{sub: sub, msgs: ch, new: make(chan *nats.Msg, 256)}
	go a.dispatch()
	c.accept[key] = a
	return a, nil
}

func (a *acceptor) dispatch() {
	for msg := range a.msgs {
		root := strings.TrimSuffix(msg.Subject, ".1")
		if _, loaded := a.seen.LoadOrStore(root, struct{}{}); !loaded {
			a.new <- msg
		}
	}
}

// Accept blocks until a new invocation of instance/name arrives.
func (c *Client) Accept(ctx context.Context, instance, name string) (transport.Subject, error) {
	a, err := c.acceptorFor(instance, name)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-a.new:
		root := Subject(strings.TrimSuffix(msg.Subject, ".1"))
		c.registerReplay(msg.Subject, msg.Data)
		return root, nil
	}
}

// registerReplay buffers the first params message for a call that the
// acceptor's wildcard watcher already consumed, so the server's own
// subject.Child(1) subscription still observes it as the first item.
func (c *Client) registerReplay(subject string, data []byte) {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()
	if c.replays == nil {
		c.replays = make(map[string][]byte)
	}
	c.replays[subject] = data
}

func idxOne() *uint32 {
	one := uint32(1)
	return &one
}
