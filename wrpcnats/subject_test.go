package wrpcnats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootSubjectSanitizesSeparators(t *testing.T) {
	s := Root("wrpc-examples:echo-stream/handler", "echo")
	require.NotContains(t, s.String(), ":")
}

func TestChildNilProducesSingleTokenWildcard(t *testing.T) {
	root := Root("demo", "greet")
	child := root.Child(nil)
	require.Equal(t, root.String()+".*", child.(Subject).String())
}

func TestChildIndexIsPositional(t *testing.T) {
	root := Root("demo", "greet")
	c0 := root.Child(idxOne()).(Subject)
	c1 := Subject(root.String() + ".1")
	require.Equal(t, c1, c0)
}

func TestChildIndicesAreInjective(t *testing.T) {
	root := Root("demo", "greet")
	seen := map[string]bool{}
	for i := uint32(0); i < 8; i++ {
		s := root.Child(&i).(Subject).String()
		require.False(t, seen[s], "collision at index %d", i)
		seen[s] = true
	}
}
