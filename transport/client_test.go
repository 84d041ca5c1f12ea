package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wrpc-go/wrpc/internal/testutil"
)

func TestInvokeServeSyncRoundTrip(t *testing.T) {
	bus := testutil.NewBus()
	inv := &testutil.Invoker{Bus: bus}
	acc := testutil.NewAcceptor(bus)

	paramsTypes := []Type{U8(), StringT()}
	resultTypes := []Type{StringT()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, acc, "demo", "greet", paramsTypes, resultTypes, func(ctx context.Context, params []Value) ([]Value, error) {
			n := params[0].U8
			name := params[1].Str
			greeting := ""
			for i := uint8(0); i < n; i++ {
				greeting += "!"
			}
			return []Value{StringValue(name + greeting)}, nil
		})
	}()

	params := []Value{U8Value(3), StringValue("hi")}
	result, err := Invoke(ctx, inv, "demo", "greet", params, resultTypes)
	require.NoError(t, err)
	require.Equal(t, "hi!!!", result[0].Str)

	cancel()
	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("serve loop did not exit after cancellation")
	}
}

func TestInvokeServeStreamOfU8RoundTrip(t *testing.T) {
	// spec.md scenario S4: a stream of three u8 items.
	bus := testutil.NewBus()
	inv := &testutil.Invoker{Bus: bus}
	acc := testutil.NewAcceptor(bus)

	elem := U8()
	paramsTypes := []Type{StreamT(&elem)}
	resultTypes := []Type{StreamT(&elem)}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		_ = Serve(ctx, acc, "demo", "double", paramsTypes, resultTypes, func(ctx context.Context, params []Value) ([]Value, error) {
			src := params[0].Stream
			return []Value{StreamValue(func(ctx context.Context) (*Value, bool, error) {
				v, ok, err := src(ctx)
				if err != nil || !ok {
					return nil, ok, err
				}
				doubled := U8Value(v.U8 * 2)
				return &doubled, true, nil
			})}, nil
		})
	}()

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

	result, err := Invoke(ctx, inv, "demo", "double", []Value{StreamValue(producer)}, resultTypes)
	require.NoError(t, err)
	require.NotNil(t, result[0].Stream)

	var got []uint8
	for {
		v, ok, err := result[0].Stream(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v.U8)
	}
	require.Equal(t, []uint8{2, 4, 6}, got)
}

func TestInvokeCancellation(t *testing.T) {
	bus := testutil.NewBus()
	inv := &testutil.Invoker{Bus: bus}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Invoke(ctx, inv, "demo", "never-served", []Value{StringValue("x")}, []Type{StringT()})
	require.Error(t, err)
}
