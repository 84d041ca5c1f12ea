package transport

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// staticStream hands back pre-chunked bytes, then io.EOF.
type staticStream struct {
	chunks [][]byte
	i      int
}

func (s *staticStream) Recv(ctx context.Context) ([]byte, error) {
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func TestULEB128RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 16384, 1<<32 - 1, 1<<64 - 1}
	for _, v := range cases {
		buf := WriteULEB128(nil, v)
		got, err := ReceiveULEB128(context.Background(), NewBuffer(buf), &staticStream{})
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestSLEB128RoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, -3, 63, -64, 300, -300, 1<<62 - 1, -(1 << 62)}
	for _, v := range cases {
		buf := WriteSLEB128(nil, v)
		got, err := ReceiveSLEB128(context.Background(), NewBuffer(buf), &staticStream{})
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestSLEB128KnownEncoding(t *testing.T) {
	// spec.md scenario S1: s32 = -3 encodes to 0x7D.
	buf := WriteSLEB128(nil, -3)
	require.Equal(t, []byte{0x7D}, buf)
}

func TestReceiveBoolStrictRejectsGarbageByte(t *testing.T) {
	buf := NewBuffer([]byte{7})
	_, err := ReceiveBool(context.Background(), buf, &staticStream{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "protocol error")
}

func TestReceiveBoolLenientMapsNonOneToFalse(t *testing.T) {
	opts := NewOptions(WithLenientBool())
	buf := NewBuffer([]byte{7})
	v, err := ReceiveBool(context.Background(), buf, &staticStream{}, opts)
	require.NoError(t, err)
	require.False(t, v)
}

func TestReceiveF32DefaultBufferIsFour(t *testing.T) {
	buf := NewBuffer([]byte{0, 0, 0x80, 0x3f}) // 1.0f little-endian
	f, err := ReceiveF32(context.Background(), buf, &staticStream{}, nil)
	require.NoError(t, err)
	require.Equal(t, float32(1.0), f)
	require.Equal(t, 0, buf.Len())
}

func TestReceiveF32WithMinBufferWaitsForMore(t *testing.T) {
	opts := NewOptions(WithMinF32Buffer(8))
	stream := &staticStream{chunks: [][]byte{{0, 0, 0, 0}}}
	buf := NewBuffer([]byte{0, 0, 0x80, 0x3f})
	f, err := ReceiveF32(context.Background(), buf, stream, opts)
	require.NoError(t, err)
	require.Equal(t, float32(1.0), f)
}

func TestReceiveStringRejectsInvalidUTF8(t *testing.T) {
	buf := NewBuffer(append(WriteULEB128(nil, 1), 0xff))
	_, err := ReceiveString(context.Background(), buf, &staticStream{})
	require.Error(t, err)
}

func TestReceiveCharRejectsSurrogate(t *testing.T) {
	buf := NewBuffer(WriteULEB128(nil, 0xD800))
	_, err := ReceiveChar(context.Background(), buf, &staticStream{})
	require.Error(t, err)
}

func TestReceiveAtLeastPullsAdditionalChunks(t *testing.T) {
	stream := &staticStream{chunks: [][]byte{{1, 2}, {3, 4}}}
	buf := NewBuffer(nil)
	err := ReceiveAtLeast(context.Background(), buf, stream, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())
}

func TestReceiveAtLeastUnexpectedEOF(t *testing.T) {
	stream := &staticStream{chunks: [][]byte{{1}}}
	buf := NewBuffer(nil)
	err := ReceiveAtLeast(context.Background(), buf, stream, 5)
	require.Error(t, err)
}
