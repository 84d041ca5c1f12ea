package transport

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wrpc-go/wrpc/wrpcerr"
)

// Transmitter publishes a finished payload (the synchronous primary
// payload, or one child subject's worth of out-of-band data) onto subject.
// Implementations (e.g. wrpcnats) own framing/chunking below this point.
type Transmitter interface {
	Transmit(ctx context.Context, subject Subject, payload []byte) error
}

// Transmit sends v's primary payload on subject and concurrently drives
// every async part of v onto its derived child subject, returning only
// once the primary payload is confirmed transmitted (the async parts
// continue in the background, tracked by the returned group — spec.md §5:
// async parts complete independently of the call that produced them).
func Transmit(ctx context.Context, tx Transmitter, subject Subject, v Value) (*errgroup.Group, error) {
	buf, async, err := Encode(ctx, nil, v)
	if err != nil {
		return nil, err
	}
	if err := tx.Transmit(ctx, subject, buf); err != nil {
		return nil, wrpcerr.NewTransportError("transmit primary payload", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	if async != nil {
		transmitAsync(gctx, g, tx, subject, async)
	}
	return g, nil
}

// TransmitTuple is Transmit specialized for a runtime-arity tuple of
// values — the shape spec.md §6 mandates for invocation params/results —
// built on EncodeDynamicTuple instead of requiring the caller to box the
// values into a TupleValue by hand.
func TransmitTuple(ctx context.Context, tx Transmitter, subject Subject, values []Value) (*errgroup.Group, error) {
	buf, async, err := EncodeDynamicTuple(ctx, nil, values)
	if err != nil {
		return nil, err
	}
	if err := tx.Transmit(ctx, subject, buf); err != nil {
		return nil, wrpcerr.NewTransportError("transmit primary payload", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	if async != nil {
		transmitAsync(gctx, g, tx, subject, async)
	}
	return g, nil
}

// transmitAsync recursively schedules every leaf of an AsyncValue tree for
// background transmission, each on its deterministically derived child
// subject, all running concurrently under g (spec.md §4.6 transmit_async).
func transmitAsync(ctx context.Context, g *errgroup.Group, tx Transmitter, subject Subject, av *AsyncValue) {
	switch av.Kind {
	case ValList, ValRecord, ValTuple:
		for i, child := range av.Children {
			if child == nil {
				continue
			}
			transmitAsync(ctx, g, tx, subject.Child(idx(uint32(i))), child)
		}

	case ValVariant:
		transmitAsync(ctx, g, tx, subject.Child(idx(av.Discriminant)), av.Nested)

	case ValOption:
		transmitAsync(ctx, g, tx, subject.Child(idx(1)), av.Nested)

	case ValResultOk:
		transmitAsync(ctx, g, tx, subject.Child(idx(0)), av.Nested)

	case ValResultErr:
		transmitAsync(ctx, g, tx, subject.Child(idx(1)), av.Nested)

	case ValFuture:
		if av.Future != nil {
			g.Go(func() error { return transmitFuture(ctx, tx, subject, av.Future) })
		} else if av.Nested != nil {
			// The future had already resolved at encode time: its value
			// rode the primary payload inline (header byte 1), so only
			// its own nested async content remains, at child(Some(0))
			// (spec.md "Future payload nested: Some(0)").
			transmitAsync(ctx, g, tx, subject.Child(idx(0)), av.Nested)
		}

	case ValStream:
		g.Go(func() error { return transmitStream(ctx, tx, subject, av.Stream) })
	}
}

func transmitFuture(ctx context.Context, tx Transmitter, subject Subject, produce FutureProducer) error {
	v, err := produce(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return tx.Transmit(ctx, subject, nil)
	}
	buf, async, err := Encode(ctx, nil, *v)
	if err != nil {
		return err
	}
	if err := tx.Transmit(ctx, subject, buf); err != nil {
		return wrpcerr.NewTransportError("transmit future payload", err)
	}
	if async == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	transmitAsync(gctx, g, tx, subject.Child(idx(0)), async)
	return g.Wait()
}

func transmitStream(ctx context.Context, tx Transmitter, subject Subject, produce StreamProducer) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := uint32(0); ; i++ {
		v, ok, err := produce(ctx)
		if err != nil {
			return err
		}
		if !ok {
			buf := WriteULEB128(nil, 0)
			if err := tx.Transmit(ctx, subject, buf); err != nil {
				return wrpcerr.NewTransportError("transmit stream end marker", err)
			}
			return g.Wait()
		}
		// Each item's primary bytes ride the subject itself as the next
		// message in sequence (the receiver's ByteStream.Recv delivers
		// messages on one subject in publish order); only an item's own
		// async content needs a subject of its own, keyed by position so
		// it matches the wildcard pattern the receiver subscribed with.
		var buf []byte
		buf = WriteULEB128(buf, 1)
		if v == nil {
			if err := tx.Transmit(gctx, subject, buf); err != nil {
				return wrpcerr.NewTransportError("transmit stream item", err)
			}
			continue
		}
		ebuf, async, err := Encode(ctx, buf, *v)
		if err != nil {
			return err
		}
		if err := tx.Transmit(gctx, subject, ebuf); err != nil {
			return wrpcerr.NewTransportError("transmit stream item", err)
		}
		if async != nil {
			itemSubject := subject.Child(idx(i))
			a := async
			g.Go(func() error {
				cg, cgctx := errgroup.WithContext(gctx)
				transmitAsync(cgctx, cg, tx, itemSubject, a)
				return cg.Wait()
			})
		}
	}
}
