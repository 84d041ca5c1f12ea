package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceAliasesResolveToFutureStream(t *testing.T) {
	require.Equal(t, FutureT(nil), Pollable().resolved())

	resolved := InputStream().resolved()
	require.Equal(t, KindStream, resolved.Kind)
	require.NotNil(t, resolved.Elem)
	require.Equal(t, KindU8, resolved.Elem.Kind)
}

func TestResourceOutputStreamAndDynamicAreNotAliased(t *testing.T) {
	out := ResourceT(ResourceOutputStream)
	require.Equal(t, out, out.resolved())

	dyn := ResourceT(ResourceDynamic)
	require.Equal(t, dyn, dyn.resolved())
}

func TestNonResourceTypesResolveToThemselves(t *testing.T) {
	ty := RecordT(U8(), StringT())
	require.Equal(t, ty, ty.resolved())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "bool", KindBool.String())
	require.Equal(t, "stream", KindStream.String())
	require.Contains(t, Kind(999).String(), "Kind(999)")
}
