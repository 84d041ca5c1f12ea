package transport

import (
	"context"
	"math"

	"github.com/wrpc-go/wrpc/wrpcerr"
)

// Encode serializes v onto buf as the synchronous primary payload, and
// returns the AsyncValue tree of parts that must instead be transmitted
// out-of-band on child subjects (nil if v has no async content at all).
// The split exactly mirrors the subscription tree SubscribeAsync would
// plan for v's Type (spec.md §4.4).
func Encode(ctx context.Context, buf []byte, v Value) ([]byte, *AsyncValue, error) {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return append(buf, 1), nil, nil
		}
		return append(buf, 0), nil, nil

	case KindU8:
		return append(buf, v.U8), nil, nil
	case KindU16:
		return WriteULEB128(buf, uint64(v.U16)), nil, nil
	case KindU32:
		return WriteULEB128(buf, uint64(v.U32)), nil, nil
	case KindU64:
		return WriteULEB128(buf, v.U64), nil, nil
	case KindS8:
		return WriteSLEB128(buf, int64(v.S8)), nil, nil
	case KindS16:
		return WriteSLEB128(buf, int64(v.S16)), nil, nil
	case KindS32:
		return WriteSLEB128(buf, int64(v.S32)), nil, nil
	case KindS64:
		return WriteSLEB128(buf, v.S64), nil, nil

	case KindF32:
		bits := math.Float32bits(v.F32)
		return append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)), nil, nil

	case KindF64:
		bits := math.Float64bits(v.F64)
		for i := 0; i < 8; i++ {
			buf = append(buf, byte(bits>>(8*i)))
		}
		return buf, nil, nil

	case KindChar:
		return WriteULEB128(buf, uint64(v.Char)), nil, nil

	case KindString:
		b := []byte(v.Str)
		buf = WriteULEB128(buf, uint64(len(b)))
		return append(buf, b...), nil, nil

	case KindEnum:
		return WriteULEB128(buf, uint64(v.EnumTag)), nil, nil

	case KindFlags:
		return WriteULEB128(buf, v.FlagBits), nil, nil

	case KindList:
		return encodeList(ctx, buf, v.List)

	case KindRecord:
		return encodePositional(ctx, buf, v.Fields, ValRecord)

	case KindTuple:
		return encodePositional(ctx, buf, v.Fields, ValTuple)

	case KindVariant:
		buf = WriteULEB128(buf, uint64(v.Discriminant))
		if v.Payload == nil {
			return buf, nil, nil
		}
		nbuf, nested, err := Encode(ctx, buf, *v.Payload)
		if err != nil {
			return nil, nil, err
		}
		if nested == nil {
			return nbuf, nil, nil
		}
		return nbuf, &AsyncValue{Kind: ValVariant, Discriminant: v.Discriminant, Nested: nested}, nil

	case KindOption:
		if v.Some == nil {
			return append(buf, 0), nil, nil
		}
		buf = append(buf, 1)
		nbuf, nested, err := Encode(ctx, buf, *v.Some)
		if err != nil {
			return nil, nil, err
		}
		if nested == nil {
			return nbuf, nil, nil
		}
		return nbuf, &AsyncValue{Kind: ValOption, Nested: nested}, nil

	case KindResult:
		if !v.IsErr {
			buf = append(buf, 0)
			if v.OkV == nil {
				return buf, nil, nil
			}
			nbuf, nested, err := Encode(ctx, buf, *v.OkV)
			if err != nil {
				return nil, nil, err
			}
			if nested == nil {
				return nbuf, nil, nil
			}
			return nbuf, &AsyncValue{Kind: ValResultOk, Nested: nested}, nil
		}
		buf = append(buf, 1)
		if v.ErrV == nil {
			return buf, nil, nil
		}
		nbuf, nested, err := Encode(ctx, buf, *v.ErrV)
		if err != nil {
			return nil, nil, err
		}
		if nested == nil {
			return nbuf, nil, nil
		}
		return nbuf, &AsyncValue{Kind: ValResultErr, Nested: nested}, nil

	case KindFuture:
		if v.Future == nil {
			return nil, nil, wrpcerr.NewProtocolError("future value has no producer", nil)
		}
		// Poll once, non-blocking (spec.md §4.4): probe with an
		// already-canceled context. A producer that resolves without
		// blocking on it returns its value here; one that genuinely
		// needs to wait returns ctx.Err() instead, since the producer
		// contract (value.go) requires it to be safe to poll again later.
		probeCtx, cancel := context.WithCancel(ctx)
		cancel()
		if fv, ferr := v.Future(probeCtx); ferr == nil {
			buf = append(buf, 1)
			if fv == nil {
				return buf, nil, nil
			}
			nbuf, nested, err := Encode(ctx, buf, *fv)
			if err != nil {
				return nil, nil, err
			}
			if nested == nil {
				return nbuf, nil, nil
			}
			return nbuf, &AsyncValue{Kind: ValFuture, Nested: nested}, nil
		}
		return append(buf, 0), &AsyncValue{Kind: ValFuture, Future: v.Future}, nil

	case KindStream:
		if v.Stream == nil {
			return nil, nil, wrpcerr.NewProtocolError("stream value has no producer", nil)
		}
		// Always the "not pre-drained" pending form (spec.md §4.4); a
		// batched fast path for already-materialized streams is
		// EncodeStreamBulk, used explicitly by callers that have one.
		return append(buf, 0), &AsyncValue{Kind: ValStream, Stream: v.Stream}, nil

	case KindResource:
		b := []byte(v.Handle)
		buf = WriteULEB128(buf, uint64(len(b)))
		return append(buf, b...), nil, nil

	default:
		return nil, nil, wrpcerr.NewProtocolError("unknown value kind during encode", nil)
	}
}

// EncodeDynamicTuple encodes an ad hoc tuple, whose elements may be of
// different kinds, and whose arity is known only at runtime (e.g. a variadic RPC parameter list), reusing
// the same positional async-splitting rule as a fixed tuple. Supplements
// the original implementation, which has no runtime-arity tuple path.
func EncodeDynamicTuple(ctx context.Context, buf []byte, elems []Value) ([]byte, *AsyncValue, error) {
	return encodePositional(ctx, buf, elems, ValTuple)
}

// EncodeStreamBulk drains producer eagerly up to max items (or until it
// signals end of stream, whichever is first) and encodes the result as
// the bulk chunk format spec.md §4.5 describes: a LEB128 element count
// (which must be at least 2, since 0 and 1 are the pending/inline-one
// header sentinels) followed by each element encoded in place (no
// per-item framing, since the shared element type fixes its width), then
// a terminating byte 0. Supplements the original implementation, which
// has no public bulk stream encode to pair with its bulk decode path.
func EncodeStreamBulk(ctx context.Context, producer StreamProducer, max int) ([]byte, int, error) {
	items := make([]*Value, 0, max)
	n := 0
	for n < max {
		v, ok, err := producer(ctx)
		if err != nil {
			return nil, n, err
		}
		if !ok {
			break
		}
		items = append(items, v)
		n++
	}
	if n < 2 {
		return nil, n, wrpcerr.NewProtocolError("bulk stream encoding requires at least 2 items", nil)
	}
	buf := WriteULEB128(nil, uint64(n))
	for _, item := range items {
		if item == nil {
			continue
		}
		ibuf, nested, err := Encode(ctx, buf, *item)
		if err != nil {
			return nil, n, err
		}
		if nested != nil {
			return nil, n, wrpcerr.NewProtocolError("bulk stream items must be fully synchronous", nil)
		}
		buf = ibuf
	}
	buf = append(buf, 0)
	return buf, n, nil
}

func encodeList(ctx context.Context, buf []byte, elems []Value) ([]byte, *AsyncValue, error) {
	buf = WriteULEB128(buf, uint64(len(elems)))
	if isByteList(elems) {
		// list<u8> fast path (spec.md §4.1): a single contiguous copy
		// instead of one positional Encode call per element.
		for _, e := range elems {
			buf = append(buf, e.U8)
		}
		return buf, nil, nil
	}
	return encodePositionalInto(ctx, buf, elems, ValList)
}

func isByteList(elems []Value) bool {
	for _, e := range elems {
		if e.Kind != KindU8 {
			return false
		}
	}
	return true
}

func encodePositional(ctx context.Context, buf []byte, elems []Value, kind AsyncValueKind) ([]byte, *AsyncValue, error) {
	return encodePositionalInto(ctx, buf, elems, kind)
}

func encodePositionalInto(ctx context.Context, buf []byte, elems []Value, kind AsyncValueKind) ([]byte, *AsyncValue, error) {
	children := make([]*AsyncValue, len(elems))
	hasAsync := false
	for i, e := range elems {
		nbuf, nested, err := Encode(ctx, buf, e)
		if err != nil {
			return nil, nil, err
		}
		buf = nbuf
		if nested != nil {
			children[i] = nested
			hasAsync = true
		}
	}
	if !hasAsync {
		return buf, nil, nil
	}
	return buf, &AsyncValue{Kind: kind, Children: children}, nil
}
