package transport

import (
	"context"
	"sync"

	"github.com/wrpc-go/wrpc/wrpcerr"
)

// Decode reads a Value of shape ty from buf (pulling more chunks from rx
// as needed), consuming async-aliased resource handles from sub as that
// node's subscription tree is walked. It is the receive-side mirror of
// Encode/SubscribeAsync (spec.md §4.5).
func Decode(ctx context.Context, ty Type, buf *Buffer, rx ByteStream, sub *AsyncSubscription[ByteStream], opts *Options) (Value, error) {
	ty = ty.resolved()
	switch ty.Kind {
	case KindBool:
		b, err := ReceiveBool(ctx, buf, rx, opts)
		return BoolValue(b), err

	case KindU8:
		b, err := ReceiveU8(ctx, buf, rx)
		return U8Value(b), err
	case KindU16:
		n, err := ReceiveULEB128(ctx, buf, rx)
		return U16Value(uint16(n)), err
	case KindU32:
		n, err := ReceiveULEB128(ctx, buf, rx)
		return U32Value(uint32(n)), err
	case KindU64:
		n, err := ReceiveULEB128(ctx, buf, rx)
		return U64Value(n), err
	case KindS8:
		n, err := ReceiveSLEB128(ctx, buf, rx)
		return S8Value(int8(n)), err
	case KindS16:
		n, err := ReceiveSLEB128(ctx, buf, rx)
		return S16Value(int16(n)), err
	case KindS32:
		n, err := ReceiveSLEB128(ctx, buf, rx)
		return S32Value(int32(n)), err
	case KindS64:
		n, err := ReceiveSLEB128(ctx, buf, rx)
		return S64Value(n), err

	case KindF32:
		f, err := ReceiveF32(ctx, buf, rx, opts)
		return F32Value(f), err
	case KindF64:
		f, err := ReceiveF64(ctx, buf, rx)
		return F64Value(f), err
	case KindChar:
		r, err := ReceiveChar(ctx, buf, rx)
		return CharValue(r), err
	case KindString:
		s, err := ReceiveString(ctx, buf, rx)
		return StringValue(s), err
	case KindEnum:
		n, err := ReceiveULEB128(ctx, buf, rx)
		return EnumValue(uint32(n)), err
	case KindFlags:
		n, err := ReceiveULEB128(ctx, buf, rx)
		return FlagsValue(n), err

	case KindList:
		if ty.Elem.resolved().Kind == KindU8 {
			// list<u8> fast path (spec.md §4.1): one contiguous copy
			// instead of one positional Decode call per element.
			b, err := ReceiveByteList(ctx, buf, rx)
			if err != nil {
				return Value{}, err
			}
			return ByteListValue(b), nil
		}
		n, err := ReceiveListHeader(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		var elemSub *AsyncSubscription[ByteStream]
		if sub != nil && sub.Kind == SubList {
			elemSub = sub.Elem
		}
		elems := make([]Value, n)
		for i := uint32(0); i < n; i++ {
			v, err := Decode(ctx, *ty.Elem, buf, rx, elemSub, opts)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return ListValue(elems...), nil

	case KindRecord:
		fields, err := decodePositional(ctx, ty.Fields, buf, rx, sub, SubRecord, opts)
		if err != nil {
			return Value{}, err
		}
		return RecordValue(fields...), nil

	case KindTuple:
		fields, err := decodePositional(ctx, ty.Fields, buf, rx, sub, SubTuple, opts)
		if err != nil {
			return Value{}, err
		}
		return TupleValue(fields...), nil

	case KindVariant:
		d, err := ReceiveDiscriminant(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		if int(d) >= len(ty.Arms) {
			return Value{}, wrpcerr.NewProtocolError("variant discriminant out of range", nil)
		}
		armTy := ty.Arms[d]
		if armTy == nil {
			return VariantValue(d, nil), nil
		}
		var armSub *AsyncSubscription[ByteStream]
		if sub != nil && sub.Kind == SubVariant && int(d) < len(sub.Children) {
			armSub = sub.Children[d]
		}
		payload, err := Decode(ctx, *armTy, buf, rx, armSub, opts)
		if err != nil {
			return Value{}, err
		}
		return VariantValue(d, &payload), nil

	case KindOption:
		d, err := ReceiveDiscriminant(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		if d == 0 {
			return OptionValue(nil), nil
		}
		var someSub *AsyncSubscription[ByteStream]
		if sub != nil && sub.Kind == SubOption {
			someSub = sub.Some
		}
		v, err := Decode(ctx, *ty.Elem, buf, rx, someSub, opts)
		if err != nil {
			return Value{}, err
		}
		return OptionValue(&v), nil

	case KindResult:
		d, err := ReceiveDiscriminant(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		var okSub, errSub *AsyncSubscription[ByteStream]
		if sub != nil && sub.Kind == SubResult {
			okSub, errSub = sub.Ok, sub.Err
		}
		if d == 0 {
			if ty.Ok == nil {
				return OkValue(nil), nil
			}
			v, err := Decode(ctx, *ty.Ok, buf, rx, okSub, opts)
			if err != nil {
				return Value{}, err
			}
			return OkValue(&v), nil
		}
		if ty.Err == nil {
			return ErrValue(nil), nil
		}
		v, err := Decode(ctx, *ty.Err, buf, rx, errSub, opts)
		if err != nil {
			return Value{}, err
		}
		return ErrValue(&v), nil

	case KindFuture:
		if sub == nil || sub.Kind != SubFuture {
			return Value{}, wrpcerr.NewProtocolError("future value missing its subscription", nil)
		}
		stream := sub.Subscriber
		nested := sub.Nested
		elemTy := ty.Elem

		header, err := ReceiveU8(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		switch header {
		case 0:
			// Pending: construct a lazy Future that, when polled, reads
			// exactly one payload chunk from the subscribed child stream
			// and decodes the value (spec.md §4.5).
			resolved := false
			producer := func(ctx context.Context) (*Value, error) {
				if resolved {
					return nil, nil
				}
				if elemTy == nil {
					chunk, err := stream.Recv(ctx)
					if err != nil {
						return nil, wrpcerr.NewTransportError("receive future value", err)
					}
					resolved = true
					if len(chunk) != 0 {
						return nil, wrpcerr.NewProtocolError("pending unit future carried a non-empty chunk", nil)
					}
					return nil, nil
				}
				fbuf := NewBuffer(nil)
				v, err := Decode(ctx, *elemTy, fbuf, stream, nested, opts)
				if err != nil {
					return nil, err
				}
				resolved = true
				return &v, nil
			}
			return FutureValue(producer), nil

		case 1:
			// Ready: decode the value inline from the main payload and
			// wrap it in an immediately-ready future.
			if elemTy == nil {
				return ReadyFuture(nil), nil
			}
			v, err := Decode(ctx, *elemTy, buf, rx, nested, opts)
			if err != nil {
				return Value{}, err
			}
			return ReadyFuture(&v), nil

		default:
			return Value{}, wrpcerr.NewProtocolError("invalid future header byte", nil)
		}

	case KindStream:
		if sub == nil || sub.Kind != SubStream {
			return Value{}, wrpcerr.NewProtocolError("stream value missing its subscription", nil)
		}
		stream := sub.Subscriber
		nested := sub.Nested
		elemTy := ty.Elem

		header, err := ReceiveU8(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		switch {
		case header == 0:
			// Pending/open stream: a background producer task owns the
			// per-item framing from here on (spec.md §4.5, §5).
			return StreamValue(openStreamProducer(stream, nested, elemTy, opts)), nil

		case header == 1:
			var el *Value
			if elemTy != nil {
				v, err := Decode(ctx, *elemTy, buf, rx, nested, opts)
				if err != nil {
					return Value{}, err
				}
				el = &v
			}
			if err := expectStreamTerminator(ctx, buf, rx); err != nil {
				return Value{}, err
			}
			return StreamValue(fixedStreamProducer([]*Value{el})), nil

		default:
			n, err := receiveULEB128From(ctx, header, buf, rx)
			if err != nil {
				return Value{}, wrpcerr.NewProtocolError("failed to decode bulk stream length", err)
			}
			items := make([]*Value, n)
			if elemTy != nil {
				for i := uint64(0); i < n; i++ {
					v, err := Decode(ctx, *elemTy, buf, rx, nested, opts)
					if err != nil {
						return Value{}, err
					}
					items[i] = &v
				}
			}
			if err := expectStreamTerminator(ctx, buf, rx); err != nil {
				return Value{}, err
			}
			return StreamValue(fixedStreamProducer(items)), nil
		}

	case KindResource:
		s, err := ReceiveString(ctx, buf, rx)
		if err != nil {
			return Value{}, err
		}
		return HandleValue(ty.Resource, s), nil

	default:
		return Value{}, wrpcerr.NewProtocolError("unknown type kind during decode", nil)
	}
}

func decodePositional(ctx context.Context, types []Type, buf *Buffer, rx ByteStream, sub *AsyncSubscription[ByteStream], kind AsyncSubscriptionKind, opts *Options) ([]Value, error) {
	out := make([]Value, len(types))
	for i, ty := range types {
		var childSub *AsyncSubscription[ByteStream]
		if sub != nil && sub.Kind == kind && i < len(sub.Children) {
			childSub = sub.Children[i]
		}
		v, err := Decode(ctx, ty, buf, rx, childSub, opts)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeTuple decodes a runtime-arity tuple given its element types: the
// receive-side mirror of EncodeDynamicTuple, used to decode invocation
// params/results (spec.md §6 "params/results encode as a tuple").
func DecodeTuple(ctx context.Context, types []Type, buf *Buffer, rx ByteStream, sub *AsyncSubscription[ByteStream], opts *Options) ([]Value, error) {
	return decodePositional(ctx, types, buf, rx, sub, SubTuple, opts)
}

// receiveULEB128From continues decoding an unsigned LEB128 integer whose
// first byte has already been read off the wire as first (used for the
// stream bulk-length header, where the sentinel byte doubles as the first
// LEB128 byte once it's known not to be 0 or 1).
func receiveULEB128From(ctx context.Context, first byte, buf *Buffer, rx ByteStream) (uint64, error) {
	v := uint64(first & 0x7f)
	if first&continuationBit == 0 {
		return v, nil
	}
	shift := uint(7)
	for {
		if err := ReceiveAtLeast(ctx, buf, rx, 1); err != nil {
			return 0, err
		}
		b := buf.data[0]
		buf.Advance(1)
		v |= uint64(b&0x7f) << shift
		if b&continuationBit == 0 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, wrpcerr.NewProtocolError("LEB128 unsigned integer overflow", nil)
		}
	}
}

// expectStreamTerminator consumes the single terminating byte 0 spec.md
// §4.5 requires after an inline-one or bulk stream payload.
func expectStreamTerminator(ctx context.Context, buf *Buffer, rx ByteStream) error {
	b, err := ReceiveU8(ctx, buf, rx)
	if err != nil {
		return err
	}
	if b != 0 {
		return wrpcerr.NewProtocolError("expected stream terminator byte", nil)
	}
	return nil
}

// fixedStreamProducer builds a StreamProducer over an already-materialized
// slice of items (the inline-one and bulk stream forms, both fully
// decoded synchronously up front — no background task needed).
func fixedStreamProducer(items []*Value) StreamProducer {
	i := 0
	return func(context.Context) (*Value, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}
}

// streamItem carries one decoded element (or a terminal error) from the
// background producer task to the consumer-facing StreamProducer.
type streamItem struct {
	v   *Value
	err error
}

// openStreamProducer implements the pending/open stream form (header byte
// 0): a background task reads one framed item at a time from the
// subscribed child stream and forwards each through a single-item-buffered
// channel, so the producer is never more than one item ahead of the
// consumer (spec.md §4.5, §5 back-pressure). The task starts lazily on
// the first call, using that call's context as its own lifetime: canceling
// it aborts the task, mirroring "dropping the decoded stream aborts the
// producer".
func openStreamProducer(stream ByteStream, nested *AsyncSubscription[ByteStream], elemTy *Type, opts *Options) StreamProducer {
	var once sync.Once
	var cancel context.CancelFunc
	items := make(chan streamItem, 1)

	start := func(ctx context.Context) {
		once.Do(func() {
			var taskCtx context.Context
			taskCtx, cancel = context.WithCancel(ctx)
			go func() {
				defer close(items)
				sbuf := NewBuffer(nil)
				for {
					d, err := ReceiveDiscriminant(taskCtx, sbuf, stream)
					if err != nil {
						select {
						case items <- streamItem{err: err}:
						case <-taskCtx.Done():
						}
						return
					}
					if d == 0 {
						return
					}
					var v *Value
					if elemTy != nil {
						dv, err := Decode(taskCtx, *elemTy, sbuf, stream, nested, opts)
						if err != nil {
							select {
							case items <- streamItem{err: err}:
							case <-taskCtx.Done():
							}
							return
						}
						v = &dv
					}
					select {
					case items <- streamItem{v: v}:
					case <-taskCtx.Done():
						return
					}
				}
			}()
		})
	}

	return func(ctx context.Context) (*Value, bool, error) {
		start(ctx)
		select {
		case it, ok := <-items:
			if !ok {
				return nil, false, nil
			}
			if it.err != nil {
				return nil, false, it.err
			}
			return it.v, true, nil
		case <-ctx.Done():
			if cancel != nil {
				cancel()
			}
			return nil, false, wrpcerr.NewCancellationError(ctx.Err())
		}
	}
}
