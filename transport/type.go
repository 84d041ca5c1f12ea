// Package transport implements the structurally-typed asynchronous RPC
// wire codec: the Type/Value data model, the LEB128/fixed-width
// primitive codec, the type-directed subscription planner, the value
// encoder/decoder, and the transmitter/acceptor that walk the resulting
// async trees over an abstract publish/subscribe substrate.
//
// The substrate itself (Subject, Subscriber, Transmitter) is taken as an
// interface; concrete bindings such as wrpcnats implement it.
package transport

import "fmt"

// Protocol is the wire protocol version advertised by this implementation.
const Protocol = "wrpc.0.0.1"

// Kind discriminates the tagged union of Type.
type Kind int

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindS8
	KindS16
	KindS32
	KindS64
	KindF32
	KindF64
	KindChar
	KindString
	KindList
	KindRecord
	KindTuple
	KindVariant
	KindEnum
	KindOption
	KindResult
	KindFlags
	KindFuture
	KindStream
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindS8:
		return "s8"
	case KindS16:
		return "s16"
	case KindS32:
		return "s32"
	case KindS64:
		return "s64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindVariant:
		return "variant"
	case KindEnum:
		return "enum"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindFlags:
		return "flags"
	case KindFuture:
		return "future"
	case KindStream:
		return "stream"
	case KindResource:
		return "resource"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ResourceKind distinguishes the dynamic-resource sub-cases of Type.
type ResourceKind int

const (
	ResourcePollable ResourceKind = iota
	ResourceInputStream
	ResourceOutputStream
	ResourceDynamic
)

// Type is a tagged union over the WIT-like component value model
// described in spec.md §3. Only the fields relevant to Kind are
// populated; the rest are zero values.
type Type struct {
	Kind Kind

	// List, Option, Future, Stream: element type (nil for Future(None)/Stream(None)).
	Elem *Type

	// Record, Tuple: field types in order.
	Fields []Type

	// Variant: payload type per arm; nil entry means a payload-less arm.
	Arms []*Type

	// Result: ok/err payload types; nil means that side carries no value.
	Ok  *Type
	Err *Type

	// Resource: which resource sub-kind this is.
	Resource ResourceKind
}

// Bool, U8, ... construct leaf scalar types.
func Bool() Type   { return Type{Kind: KindBool} }
func U8() Type     { return Type{Kind: KindU8} }
func U16() Type    { return Type{Kind: KindU16} }
func U32() Type    { return Type{Kind: KindU32} }
func U64() Type    { return Type{Kind: KindU64} }
func S8() Type     { return Type{Kind: KindS8} }
func S16() Type    { return Type{Kind: KindS16} }
func S32() Type    { return Type{Kind: KindS32} }
func S64() Type    { return Type{Kind: KindS64} }
func F32() Type    { return Type{Kind: KindF32} }
func F64() Type    { return Type{Kind: KindF64} }
func Char() Type   { return Type{Kind: KindChar} }
func StringT() Type { return Type{Kind: KindString} }
func EnumT() Type  { return Type{Kind: KindEnum} }
func FlagsT() Type { return Type{Kind: KindFlags} }

// ListT builds list<elem>.
func ListT(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }

// RecordT builds record { fields... } in declared order.
func RecordT(fields ...Type) Type { return Type{Kind: KindRecord, Fields: fields} }

// TupleT builds tuple<fields...>.
func TupleT(fields ...Type) Type { return Type{Kind: KindTuple, Fields: fields} }

// VariantT builds a variant from per-arm payload types (nil arm = no payload).
func VariantT(arms ...*Type) Type { return Type{Kind: KindVariant, Arms: arms} }

// OptionT builds option<elem>.
func OptionT(elem Type) Type { return Type{Kind: KindOption, Elem: &elem} }

// ResultT builds result<ok, err>; either side may be nil.
func ResultT(ok, err *Type) Type { return Type{Kind: KindResult, Ok: ok, Err: err} }

// FutureT builds future<elem>; elem nil means future<_> (a bare pollable).
func FutureT(elem *Type) Type { return Type{Kind: KindFuture, Elem: elem} }

// StreamT builds stream<elem>; elem nil means an element-less stream (stream<>).
func StreamT(elem *Type) Type { return Type{Kind: KindStream, Elem: elem} }

// ResourceT builds a resource type of the given sub-kind.
func ResourceT(kind ResourceKind) Type { return Type{Kind: KindResource, Resource: kind} }

// Pollable is sugar for Resource::Pollable, an alias of Future(None) per spec.md §3.
func Pollable() Type { return ResourceT(ResourcePollable) }

// InputStream is sugar for Resource::InputStream, an alias of Stream(Some(U8)).
func InputStream() Type {
	return ResourceT(ResourceInputStream)
}

// resolved normalizes resource aliases to their underlying Future/Stream
// shape, so the planner/encoder/decoder only need to special-case
// Resource::OutputStream and Resource::Dynamic (which carry no async content).
func (t Type) resolved() Type {
	if t.Kind != KindResource {
		return t
	}
	switch t.Resource {
	case ResourcePollable:
		return FutureT(nil)
	case ResourceInputStream:
		u8 := U8()
		return StreamT(&u8)
	default:
		return t
	}
}
