package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeSync(t *testing.T, ty Type, buf []byte) Value {
	t.Helper()
	v, err := Decode(context.Background(), ty, NewBuffer(buf), &staticStream{}, nil, nil)
	require.NoError(t, err)
	return v
}

func TestScenarioS1TupleOfU8S32String(t *testing.T) {
	// spec.md S1: (u8=7, s32=-3, string="hi") -> 07 7D 02 68 69
	ty := TupleT(U8(), S32(), StringT())
	v := TupleValue(U8Value(7), S32Value(-3), StringValue("hi"))

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)
	require.Equal(t, []byte{0x07, 0x7D, 0x02, 0x68, 0x69}, buf)

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestScenarioS2OptionU32None(t *testing.T) {
	ty := OptionT(U32())
	v := OptionValue(nil)

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)
	require.Equal(t, []byte{0x00}, buf)

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestScenarioS2OptionU32Some300(t *testing.T) {
	ty := OptionT(U32())
	some := U32Value(300)
	v := OptionValue(&some)

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)
	require.Equal(t, []byte{0x01, 0xAC, 0x02}, buf)

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestScenarioS5ResultErrBranch(t *testing.T) {
	ty := ResultT(ptrT(U8()), ptrT(StringT()))
	errV := StringValue("boom")
	v := ErrValue(&errV)

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)
	require.Equal(t, byte(1), buf[0])

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestRecordRoundTrip(t *testing.T) {
	ty := RecordT(Bool(), F64(), Char(), EnumT(), FlagsT())
	v := RecordValue(BoolValue(true), F64Value(3.25), CharValue('λ'), EnumValue(2), FlagsValue(0b101))

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestVariantRoundTripBothArms(t *testing.T) {
	u8 := U8()
	str := StringT()
	ty := VariantT(&u8, &str, nil)

	one := VariantValue(0, vp(U8Value(5)))
	buf, _, err := Encode(context.Background(), nil, one)
	require.NoError(t, err)
	require.Equal(t, one, decodeSync(t, ty, buf))

	two := VariantValue(2, nil)
	buf2, _, err := Encode(context.Background(), nil, two)
	require.NoError(t, err)
	require.Equal(t, two, decodeSync(t, ty, buf2))
}

func TestListOfStringsRoundTrip(t *testing.T) {
	ty := ListT(StringT())
	v := ListValue(StringValue("a"), StringValue("bb"), StringValue("ccc"))

	buf, async, err := Encode(context.Background(), nil, v)
	require.NoError(t, err)
	require.Nil(t, async)

	got := decodeSync(t, ty, buf)
	require.Equal(t, v, got)
}

func TestEncodeDynamicTupleRoundTrip(t *testing.T) {
	elems := []Value{U8Value(1), U8Value(2), U8Value(3), U8Value(4)}
	buf, async, err := EncodeDynamicTuple(context.Background(), nil, elems)
	require.NoError(t, err)
	require.Nil(t, async)

	ty := TupleT(U8(), U8(), U8(), U8())
	got := decodeSync(t, ty, buf)
	require.Equal(t, TupleValue(elems...), got)
}

func TestEncodeStreamBulkStopsAtEndOfStream(t *testing.T) {
	items := []uint8{1, 2, 3}
	i := 0
	producer := func(ctx context.Context) (*Value, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		v := U8Value(items[i])
		i++
		return &v, true, nil
	}

	buf, n, err := EncodeStreamBulk(context.Background(), producer, 10)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	rxBuf := NewBuffer(buf)
	count, err := ReceiveULEB128(context.Background(), rxBuf, &staticStream{})
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
	require.Equal(t, byte(1), rxBuf.data[0])
	require.Equal(t, byte(0), buf[len(buf)-1])
}

func TestEncodeStreamBulkRespectsMax(t *testing.T) {
	producer := func(ctx context.Context) (*Value, bool, error) {
		v := U8Value(9)
		return &v, true, nil
	}
	_, n, err := EncodeStreamBulk(context.Background(), producer, 5)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func vp(v Value) *Value { return &v }
