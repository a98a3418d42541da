package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// at parses a UTC wall-clock time in one of the short layouts used by tests.
func at(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02 15", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	panic("bad test time " + s)
}

// forest gives every node without an origin a line in a shared document,
// the way a note store would.
func forest(roots ...*Node) Forest {
	line := 0
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Origin == (Origin{}) {
				n.Origin = Origin{Path: "Projects/project.md", Line: line}
			}
			line++
			walk(n.Children)
		}
	}
	walk(roots)
	return Forest(roots)
}

func runFrom(t *testing.T, f Forest, start string) *Schedule {
	t.Helper()
	s, err := Run(f, Options{Start: at(start), Now: at(start)})
	require.NoError(t, err)
	return s
}

func requireTime(t *testing.T, want string, got *time.Time, msgAndArgs ...any) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	require.Truef(t, got.Equal(at(want)), "want %s, got %s %v", want, got.Format(time.DateTime), msgAndArgs)
}
