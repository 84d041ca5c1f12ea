package wrpcnats

import (
	"fmt"
	"strings"

	"github.com/wrpc-go/wrpc/transport"
)

// Subject is a dot-delimited NATS subject, constructed left-to-right by
// Child. A nil index appends the single-token wildcard "*", matching
// spec.md §4.2's requirement that subscription subjects built before any
// concrete index is known still deterministically match whatever
// concrete subject the sender later derives for the same position.
type Subject string

// Root builds the subject an export instance/name is invoked on.
func Root(instance, name string) Subject {
	return Subject(fmt.Sprintf("wrpc.0.0.1.%s.%s", sanitize(instance), sanitize(name)))
}

// Child derives the subject for index (nil for "unbounded position").
func (s Subject) Child(index *uint32) transport.Subject {
	if index == nil {
		return Subject(string(s) + ".*")
	}
	return Subject(fmt.Sprintf("%s.%d", s, *index))
}

// String returns the literal NATS subject text.
func (s Subject) String() string { return string(s) }

func sanitize(s string) string {
	return strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-").Replace(s)
}
