package transport

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Subscriber establishes a byte-stream subscription on a Subject and, from
// a Type alone, plans the nested tree of subscriptions matching every
// async sub-value the sender will produce (spec.md §4.3).
type Subscriber interface {
	// Subscribe opens a raw byte-stream subscription on subject.
	Subscribe(ctx context.Context, subject Subject) (ByteStream, error)
}

// SubscribeAsync builds the subscription tree for ty rooted at subject,
// returning nil if ty has no asynchronous skeleton at all (spec.md §4.3
// pruning invariant: a node is emitted only if it or a descendant is
// genuinely async). Any single subscribe failure aborts the whole plan;
// partially installed subscriptions are the caller's responsibility to
// release (the subscriptions already returned own their own cleanup).
func SubscribeAsync(ctx context.Context, sub Subscriber, subject Subject, ty Type) (*AsyncSubscription[ByteStream], error) {
	ty = ty.resolved()
	switch ty.Kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64,
		KindS8, KindS16, KindS32, KindS64,
		KindF32, KindF64, KindChar, KindString,
		KindEnum, KindFlags:
		return nil, nil

	case KindList:
		nested, err := SubscribeAsync(ctx, sub, subject.Child(nil), *ty.Elem)
		if err != nil || nested == nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubList, Elem: nested}, nil

	case KindRecord:
		children, err := subscribeEach(ctx, sub, subject, ty.Fields)
		if err != nil || children == nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubRecord, Children: children}, nil

	case KindTuple:
		children, err := subscribeEach(ctx, sub, subject, ty.Fields)
		if err != nil || children == nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubTuple, Children: children}, nil

	case KindVariant:
		children, err := subscribeEachOptional(ctx, sub, subject, ty.Arms)
		if err != nil || children == nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubVariant, Children: children}, nil

	case KindOption:
		nested, err := SubscribeAsync(ctx, sub, subject.Child(idx(1)), *ty.Elem)
		if err != nil || nested == nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubOption, Some: nested}, nil

	case KindResult:
		var ok, errSub *AsyncSubscription[ByteStream]
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if ty.Ok == nil {
				return nil
			}
			s, err := SubscribeAsync(gctx, sub, subject.Child(idx(0)), *ty.Ok)
			ok = s
			return err
		})
		g.Go(func() error {
			if ty.Err == nil {
				return nil
			}
			s, err := SubscribeAsync(gctx, sub, subject.Child(idx(1)), *ty.Err)
			errSub = s
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if ok == nil && errSub == nil {
			return nil, nil
		}
		return &AsyncSubscription[ByteStream]{Kind: SubResult, Ok: ok, Err: errSub}, nil

	case KindFuture:
		if ty.Elem == nil {
			stream, err := sub.Subscribe(ctx, subject)
			if err != nil {
				return nil, err
			}
			return &AsyncSubscription[ByteStream]{Kind: SubFuture, Subscriber: stream}, nil
		}
		var stream ByteStream
		var nested *AsyncSubscription[ByteStream]
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			stream, err = sub.Subscribe(gctx, subject)
			return err
		})
		g.Go(func() (err error) {
			nested, err = SubscribeAsync(gctx, sub, subject.Child(idx(0)), *ty.Elem)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubFuture, Subscriber: stream, Nested: nested}, nil

	case KindStream:
		if ty.Elem == nil {
			stream, err := sub.Subscribe(ctx, subject)
			if err != nil {
				return nil, err
			}
			return &AsyncSubscription[ByteStream]{Kind: SubStream, Subscriber: stream}, nil
		}
		var stream ByteStream
		var nested *AsyncSubscription[ByteStream]
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			stream, err = sub.Subscribe(gctx, subject)
			return err
		})
		g.Go(func() (err error) {
			nested, err = SubscribeAsync(gctx, sub, subject.Child(nil), *ty.Elem)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &AsyncSubscription[ByteStream]{Kind: SubStream, Subscriber: stream, Nested: nested}, nil

	case KindResource:
		// Resource::OutputStream and Resource::Dynamic serialize as plain
		// strings and carry no async content; Pollable/InputStream are
		// normalized away by ty.resolved() above.
		return nil, nil

	default:
		return nil, nil
	}
}

// subscribeEach subscribes each types[i] at subject.Child(Some(i)) and
// returns the positional slice only if at least one entry is non-nil.
func subscribeEach(ctx context.Context, sub Subscriber, subject Subject, types []Type) ([]*AsyncSubscription[ByteStream], error) {
	out := make([]*AsyncSubscription[ByteStream], len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, ty := range types {
		i, ty := i, ty
		g.Go(func() error {
			s, err := SubscribeAsync(gctx, sub, subject.Child(idx(uint32(i))), ty)
			out[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !anyNonNil(out) {
		return nil, nil
	}
	return out, nil
}

// subscribeEachOptional is subscribeEach for variant arms, where an arm
// may carry no payload type at all (nil entry in types).
func subscribeEachOptional(ctx context.Context, sub Subscriber, subject Subject, types []*Type) ([]*AsyncSubscription[ByteStream], error) {
	out := make([]*AsyncSubscription[ByteStream], len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, ty := range types {
		i, ty := i, ty
		if ty == nil {
			continue
		}
		g.Go(func() error {
			s, err := SubscribeAsync(gctx, sub, subject.Child(idx(uint32(i))), *ty)
			out[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !anyNonNil(out) {
		return nil, nil
	}
	return out, nil
}

func anyNonNil(subs []*AsyncSubscription[ByteStream]) bool {
	for _, s := range subs {
		if s != nil {
			return true
		}
	}
	return false
}
