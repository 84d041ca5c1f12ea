package transport

import "context"

// FutureProducer lazily produces the single value a Future yields, or nil
// for a future<_>/Pollable that only signals readiness. It must be safe to
// poll repeatedly before it resolves and must resolve at most once.
type FutureProducer func(ctx context.Context) (*Value, error)

// StreamProducer lazily produces the next element of a Stream. It returns
// (nil, false, nil) at end of stream, (nil, true, nil) for an element-less
// "present" marker (Stream<()>), and (v, true, nil) for an element carrying
// a value. It must not be called concurrently.
type StreamProducer func(ctx context.Context) (v *Value, ok bool, err error)

// Value is a tagged union isomorphic to Type (spec.md §3). Only the field
// relevant to Kind is populated.
type Value struct {
	Kind Kind

	Bool bool
	U8   uint8
	U16  uint16
	U32  uint32
	U64  uint64
	S8   int8
	S16  int16
	S32  int32
	S64  int64
	F32  float32
	F64  float64
	Char rune

	Str string

	// List: elements in order.
	List []Value

	// Record, Tuple: field values in order.
	Fields []Value

	// Variant: which arm and its payload (nil if the arm carries none).
	Discriminant uint32
	Payload      *Value

	// Option: the payload if present.
	Some *Value

	// Result: exactly one of Ok/ErrV set if Kind == KindResult and the
	// corresponding arm carries a value; IsErr selects which side fired.
	IsErr bool
	OkV   *Value
	ErrV  *Value

	// Flags/Enum: raw discriminant/bitset, LEB128-encoded on the wire.
	FlagBits uint64
	EnumTag  uint32

	// Future: lazy single-shot producer.
	Future FutureProducer

	// Stream: lazy sequence producer.
	Stream StreamProducer

	// Resource: serializes as a String handle for OutputStream/Dynamic;
	// Pollable/InputStream are represented via Future/Stream instead.
	Handle       string
	ResourceKind ResourceKind
}

// BoolValue, U8Value, ... build leaf scalar values.
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func U8Value(v uint8) Value      { return Value{Kind: KindU8, U8: v} }
func U16Value(v uint16) Value    { return Value{Kind: KindU16, U16: v} }
func U32Value(v uint32) Value    { return Value{Kind: KindU32, U32: v} }
func U64Value(v uint64) Value    { return Value{Kind: KindU64, U64: v} }
func S8Value(v int8) Value       { return Value{Kind: KindS8, S8: v} }
func S16Value(v int16) Value     { return Value{Kind: KindS16, S16: v} }
func S32Value(v int32) Value     { return Value{Kind: KindS32, S32: v} }
func S64Value(v int64) Value     { return Value{Kind: KindS64, S64: v} }
func F32Value(v float32) Value   { return Value{Kind: KindF32, F32: v} }
func F64Value(v float64) Value   { return Value{Kind: KindF64, F64: v} }
func CharValue(v rune) Value     { return Value{Kind: KindChar, Char: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// ListValue builds a list value from its elements (use ByteListValue for
// list<u8>, which takes the fast path through the codec).
func ListValue(elems ...Value) Value { return Value{Kind: KindList, List: elems} }

// ByteListValue builds a list<u8> value from raw bytes. Encode/Decode
// recognize an all-U8 element list and take the contiguous-copy fast path
// (spec.md §4.1) instead of encoding/decoding element by element.
func ByteListValue(b []byte) Value {
	elems := make([]Value, len(b))
	for i, c := range b {
		elems[i] = U8Value(c)
	}
	return Value{Kind: KindList, List: elems}
}

// RecordValue builds a record value from its field values, in declared order.
func RecordValue(fields ...Value) Value { return Value{Kind: KindRecord, Fields: fields} }

// TupleValue builds a tuple value from its element values, in order.
func TupleValue(fields ...Value) Value { return Value{Kind: KindTuple, Fields: fields} }

// VariantValue builds a variant value selecting arm `discriminant`, with an
// optional payload.
func VariantValue(discriminant uint32, payload *Value) Value {
	return Value{Kind: KindVariant, Discriminant: discriminant, Payload: payload}
}

// OptionValue builds option<_>; pass nil for none.
func OptionValue(some *Value) Value { return Value{Kind: KindOption, Some: some} }

// OkValue builds result<ok,_> on the ok arm, which may itself carry no value.
func OkValue(v *Value) Value { return Value{Kind: KindResult, IsErr: false, OkV: v} }

// ErrValue builds result<_,err> on the err arm, which may itself carry no value.
func ErrValue(v *Value) Value { return Value{Kind: KindResult, IsErr: true, ErrV: v} }

// FlagsValue builds a flags value from its raw bitset.
func FlagsValue(bits uint64) Value { return Value{Kind: KindFlags, FlagBits: bits} }

// EnumValue builds an enum value from its raw discriminant.
func EnumValue(tag uint32) Value { return Value{Kind: KindEnum, EnumTag: tag} }

// FutureValue wraps a lazy producer as a future<_> value.
func FutureValue(p FutureProducer) Value { return Value{Kind: KindFuture, Future: p} }

// ReadyFuture builds a future<_> that is already resolved to v (v may be nil
// for an already-ready future<()>).
func ReadyFuture(v *Value) Value {
	return FutureValue(func(context.Context) (*Value, error) { return v, nil })
}

// StreamValue wraps a lazy producer as a stream<_> value.
func StreamValue(p StreamProducer) Value { return Value{Kind: KindStream, Stream: p} }

// HandleValue builds a resource value serialized as an opaque string handle.
func HandleValue(kind ResourceKind, handle string) Value {
	return Value{Kind: KindResource, Handle: handle, ResourceKind: kind}
}
