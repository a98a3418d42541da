package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKeys is wrapped by DuplicateKeyError.
	ErrDuplicateKeys = errors.New("duplicate task keys")
	// ErrCycle is wrapped by CycleError.
	ErrCycle = errors.New("predecessor cycle")
)

// DuplicateKeyError lists every key shared by more than one task. It is
// returned before any timing is computed.
type DuplicateKeyError struct {
	Keys []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDuplicateKeys, e.Keys)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKeys }

// CycleError reports a task reached again while it was still being resolved.
// Path is the resolution chain that led back to Key.
type CycleError struct {
	Key  string
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v at key %q, path: %s", ErrCycle, e.Key, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
