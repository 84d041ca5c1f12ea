package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wrpc-go/wrpc/internal/testutil"
)

func TestSubscribeAsyncPrunesFullySyncTypes(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	cases := []Type{
		Bool(), U8(), U16(), U32(), U64(), S8(), S16(), S32(), S64(),
		F32(), F64(), Char(), StringT(), EnumT(), FlagsT(),
		RecordT(U8(), S32(), StringT()),
		TupleT(U8(), U8()),
		OptionT(U8()),
		ResultT(ptrT(U8()), ptrT(StringT())),
	}
	for _, ty := range cases {
		sub, err := SubscribeAsync(context.Background(), bus, root, ty)
		require.NoError(t, err)
		require.Nil(t, sub, "type %v should have no async skeleton", ty.Kind)
	}
}

func TestSubscribeAsyncFutureWithoutPayloadSubscribesBareSubject(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	sub, err := SubscribeAsync(context.Background(), bus, root, FutureT(nil))
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, SubFuture, sub.Kind)
	require.Nil(t, sub.Nested)
}

func TestSubscribeAsyncFutureWithPayloadSubscribesNested(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	elem := U8()
	sub, err := SubscribeAsync(context.Background(), bus, root, FutureT(&elem))
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, SubFuture, sub.Kind)
	// U8 payload has no async content of its own.
	require.Nil(t, sub.Nested)
}

func TestSubscribeAsyncStreamOfAsyncElementBuildsNestedTree(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	elem := FutureT(nil)
	sub, err := SubscribeAsync(context.Background(), bus, root, StreamT(&elem))
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, SubStream, sub.Kind)
	require.NotNil(t, sub.Nested)
	require.Equal(t, SubFuture, sub.Nested.Kind)
}

func TestSubscribeAsyncRecordPrunesSyncFieldsOnly(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	ty := RecordT(U8(), FutureT(nil), StringT())
	sub, err := SubscribeAsync(context.Background(), bus, root, ty)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, SubRecord, sub.Kind)
	require.Len(t, sub.Children, 3)
	require.Nil(t, sub.Children[0])
	require.NotNil(t, sub.Children[1])
	require.Nil(t, sub.Children[2])
}

func TestSubscribeAsyncVariantOnlyAsyncArmsSubscribed(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	u8 := U8()
	future := FutureT(nil)
	ty := VariantT(&u8, &future, nil)
	sub, err := SubscribeAsync(context.Background(), bus, root, ty)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, SubVariant, sub.Kind)
	require.Len(t, sub.Children, 3)
	require.Nil(t, sub.Children[0])
	require.NotNil(t, sub.Children[1])
	require.Nil(t, sub.Children[2])
}

func TestSubscribeAsyncResourcesCarryNoAsyncContent(t *testing.T) {
	bus := testutil.NewBus()
	root := testutil.Subject("root")

	for _, kind := range []ResourceKind{ResourceOutputStream, ResourceDynamic} {
		sub, err := SubscribeAsync(context.Background(), bus, root, ResourceT(kind))
		require.NoError(t, err)
		require.Nil(t, sub)
	}
}

func ptrT(t Type) *Type { return &t }
