package transport

import (
	"context"
	"io"
	"math"
	"unicode/utf8"

	"github.com/wrpc-go/wrpc/wrpcerr"
)

// continuationBit marks "more bytes follow" in a LEB128 group.
const continuationBit = 0x80

// ByteStream is the per-subject inbound byte source: a sequence of
// chunks, exhausted when Recv returns io.EOF. Decoders pull additional
// chunks from it only when the locally buffered bytes run short
// (spec.md §4.1 "receive_at_least").
type ByteStream interface {
	Recv(ctx context.Context) ([]byte, error)
}

// Buffer is an append-only, consume-from-the-front byte buffer: the
// primary payload plus whatever chunks have been pulled from a ByteStream
// to satisfy a decode. The "leftover" bytes after a value has been fully
// decoded become the next decode's starting Buffer (spec.md §4.5).
type Buffer struct {
	data []byte
}

// NewBuffer wraps an initial byte slice (e.g. the primary payload) as a Buffer.
func NewBuffer(data []byte) *Buffer { return &Buffer{data: data} }

// Len reports the number of unread bytes currently buffered.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the unread bytes, without consuming them.
func (b *Buffer) Bytes() []byte { return b.data }

// Advance discards the first n unread bytes.
func (b *Buffer) Advance(n int) { b.data = b.data[n:] }

// ReceiveAtLeast pulls additional chunks from rx until at least n bytes
// are buffered, or returns a protocol error on premature end of stream.
func ReceiveAtLeast(ctx context.Context, buf *Buffer, rx ByteStream, n int) error {
	for buf.Len() < n {
		chunk, err := rx.Recv(ctx)
		if err != nil {
			if err == io.EOF {
				return wrpcerr.NewProtocolError("unexpected end of stream", err)
			}
			return wrpcerr.NewTransportError("receive payload chunk", err)
		}
		buf.data = append(buf.data, chunk...)
	}
	return nil
}

// WriteULEB128 appends v to buf as unsigned LEB128.
func WriteULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|continuationBit)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

// WriteSLEB128 appends v to buf as signed LEB128.
func WriteSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= continuationBit
		}
		buf = append(buf, b)
	}
	return buf
}

// ReceiveULEB128 decodes an unsigned LEB128 integer, pulling chunks as needed.
func ReceiveULEB128(ctx context.Context, buf *Buffer, rx ByteStream) (uint64, error) {
	var v uint64
	var shift uint
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

// ReceiveSLEB128 decodes a signed LEB128 integer, pulling chunks as needed.
func ReceiveSLEB128(ctx context.Context, buf *Buffer, rx ByteStream) (int64, error) {
	var v int64
	var shift uint
	var b byte
	for {
		if err := ReceiveAtLeast(ctx, buf, rx, 1); err != nil {
			return 0, err
		}
		b = buf.data[0]
		buf.Advance(1)
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&continuationBit == 0 {
			break
		}
		if shift >= 64 {
			return 0, wrpcerr.NewProtocolError("LEB128 signed integer overflow", nil)
		}
	}
	if shift < 64 && b&0x40 != 0 {
		v |= -1 << shift
	}
	return v, nil
}

// ReceiveU8 decodes a raw single byte.
func ReceiveU8(ctx context.Context, buf *Buffer, rx ByteStream) (uint8, error) {
	if err := ReceiveAtLeast(ctx, buf, rx, 1); err != nil {
		return 0, err
	}
	v := buf.data[0]
	buf.Advance(1)
	return v, nil
}

// ReceiveBool decodes a one-byte boolean. In strict mode (the default) any
// byte other than 0 or 1 is a protocol error; in lenient mode it mirrors
// the original decoder's `byte == 1` behavior (spec.md §9).
func ReceiveBool(ctx context.Context, buf *Buffer, rx ByteStream, opts *Options) (bool, error) {
	b, err := ReceiveU8(ctx, buf, rx)
	if err != nil {
		return false, err
	}
	if opts.lenientBool() {
		return b == 1, nil
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, wrpcerr.NewProtocolError("invalid bool byte", nil)
	}
}

// ReceiveF32 decodes a little-endian IEEE-754 f32. The original decoder
// requires 8 bytes buffered before consuming 4 (spec.md §9); this default
// relaxes that to 4, the minimal value-preserving bound. WithMinF32Buffer
// restores the original lower bound for byte-for-byte interop.
func ReceiveF32(ctx context.Context, buf *Buffer, rx ByteStream, opts *Options) (float32, error) {
	if err := ReceiveAtLeast(ctx, buf, rx, opts.minF32Buffer()); err != nil {
		return 0, err
	}
	bits := uint32(buf.data[0]) | uint32(buf.data[1])<<8 | uint32(buf.data[2])<<16 | uint32(buf.data[3])<<24
	buf.Advance(4)
	return math.Float32frombits(bits), nil
}

// ReceiveF64 decodes a little-endian IEEE-754 f64.
func ReceiveF64(ctx context.Context, buf *Buffer, rx ByteStream) (float64, error) {
	if err := ReceiveAtLeast(ctx, buf, rx, 8); err != nil {
		return 0, err
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(buf.data[i]) << (8 * i)
	}
	buf.Advance(8)
	return math.Float64frombits(bits), nil
}

// ReceiveChar decodes a LEB128 u32 and validates it as a Unicode scalar value.
func ReceiveChar(ctx context.Context, buf *Buffer, rx ByteStream) (rune, error) {
	v, err := ReceiveULEB128(ctx, buf, rx)
	if err != nil {
		return 0, err
	}
	if v > utf8.MaxRune || (v >= 0xD800 && v <= 0xDFFF) {
		return 0, wrpcerr.NewProtocolError("invalid Unicode scalar value", nil)
	}
	return rune(v), nil
}

// ReceiveString decodes a LEB128-length-prefixed UTF-8 string.
func ReceiveString(ctx context.Context, buf *Buffer, rx ByteStream) (string, error) {
	n, err := ReceiveULEB128(ctx, buf, rx)
	if err != nil {
		return "", err
	}
	if err := ReceiveAtLeast(ctx, buf, rx, int(n)); err != nil {
		return "", err
	}
	b := buf.data[:n]
	if !utf8.Valid(b) {
		return "", wrpcerr.NewProtocolError("invalid UTF-8 in string", nil)
	}
	s := string(b)
	buf.Advance(int(n))
	return s, nil
}

// ReceiveByteList decodes a LEB128-length-prefixed raw byte list
// (list<u8>'s optimized fast path: a single contiguous copy).
func ReceiveByteList(ctx context.Context, buf *Buffer, rx ByteStream) ([]byte, error) {
	n, err := ReceiveULEB128(ctx, buf, rx)
	if err != nil {
		return nil, err
	}
	if err := ReceiveAtLeast(ctx, buf, rx, int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf.data[:n])
	buf.Advance(int(n))
	return out, nil
}

// ReceiveListHeader decodes the LEB128 element count prefixing a list.
func ReceiveListHeader(ctx context.Context, buf *Buffer, rx ByteStream) (uint32, error) {
	n, err := ReceiveULEB128(ctx, buf, rx)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, wrpcerr.NewProtocolError("list length does not fit in u32", nil)
	}
	return uint32(n), nil
}

// ReceiveDiscriminant decodes the LEB128 discriminant prefixing a variant/result/option.
func ReceiveDiscriminant(ctx context.Context, buf *Buffer, rx ByteStream) (uint32, error) {
	n, err := ReceiveULEB128(ctx, buf, rx)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, wrpcerr.NewProtocolError("discriminant does not fit in u32", nil)
	}
	return uint32(n), nil
}
