// Package testutil provides an in-process, in-memory substrate
// implementing transport.Subject/Subscriber/Transmitter/Invoker/Acceptor,
// so codec and orchestration tests can exercise full invoke/serve round
// trips without a live NATS server.
package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wrpc-go/wrpc/transport"
)

// Subject is a dot-delimited in-memory subject, mirroring wrpcnats's
// wildcard-child derivation rule without requiring a real broker.
type Subject string

func (s Subject) Child(index *uint32) transport.Subject {
	if index == nil {
		return Subject(string(s) + ".*")
	}
	return Subject(fmt.Sprintf("%s.%d", s, *index))
}

func (s Subject) String() string { return string(s) }

// Bus is a minimal in-memory publish/subscribe substrate: each Subscribe
// call registers a channel matched against every later Transmit by exact
// literal-subject match against the subscriber's own pattern (a single
// wildcard token matches any one token at that position). It also relays
// NewCall announcements to any Acceptor waiting on the same instance/name,
// standing in for a real binding's wildcard-subject call discovery.
type Bus struct {
	mu   sync.Mutex
	subs []*subscription

	callMu sync.Mutex
	calls  map[string]chan transport.Subject
	seq    atomic.Uint64
}

type subscription struct {
	pattern []string
	ch      chan []byte
}

// NewBus constructs an empty in-memory bus.
func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe(ctx context.Context, subject transport.Subject) (transport.ByteStream, error) {
	subj, ok := subject.(Subject)
	if !ok {
		return nil, fmt.Errorf("testutil: subject %v is not a testutil.Subject", subject)
	}
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs = append(b.subs, &subscription{pattern: strings.Split(string(subj), "."), ch: ch})
	b.mu.Unlock()
	return &chanStream{ch: ch}, nil
}

func (b *Bus) Transmit(ctx context.Context, subject transport.Subject, payload []byte) error {
	subj, ok := subject.(Subject)
	if !ok {
		return fmt.Errorf("testutil: subject %v is not a testutil.Subject", subject)
	}
	tokens := strings.Split(string(subj), ".")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if matches(s.pattern, tokens) {
			s.ch <- payload
		}
	}
	return nil
}

func matches(pattern, tokens []string) bool {
	if len(pattern) != len(tokens) {
		return false
	}
	for i, p := range pattern {
		if p == "*" {
			continue
		}
		if p != tokens[i] {
			return false
		}
	}
	return true
}

type chanStream struct {
	ch chan []byte
}

func (s *chanStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

// Invoker adapts a Bus as a transport.Invoker, allocating a fresh root
// subject per call from a monotonic local counter rather than a NUID
// (sufficient uniqueness for a single-process test bus).
type Invoker struct {
	*Bus
	Instance string
	Name     string
}

func (iv *Invoker) NewCall(ctx context.Context, instance, name string) (transport.Subject, error) {
	n := iv.seq.Add(1)
	root := Subject(fmt.Sprintf("wrpc.test.%s.%s.%d", instance, name, n))
	iv.Bus.announce(instance, name, root)
	return root, nil
}

func (b *Bus) announce(instance, name string, root transport.Subject) {
	b.callChan(instance, name) <- root
}

func (b *Bus) callChan(instance, name string) chan transport.Subject {
	b.callMu.Lock()
	defer b.callMu.Unlock()
	if b.calls == nil {
		b.calls = make(map[string]chan transport.Subject)
	}
	ch, ok := b.calls[instance+"/"+name]
	if !ok {
		ch = make(chan transport.Subject, 16)
		b.calls[instance+"/"+name] = ch
	}
	return ch
}

// Acceptor adapts a Bus as a transport.Acceptor for one export, listening
// for NewCall announcements the Bus relays from any Invoker.
type Acceptor struct {
	*Bus
}

// NewAcceptor constructs an Acceptor backed by bus.
func NewAcceptor(bus *Bus) *Acceptor {
	return &Acceptor{Bus: bus}
}

func (a *Acceptor) Accept(ctx context.Context, instance, name string) (transport.Subject, error) {
	ch := a.Bus.callChan(instance, name)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case root := <-ch:
		return root, nil
	}
}
