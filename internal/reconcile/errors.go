package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownQuestion is returned when a mutation names a question that is
	// not in the loaded list.
	ErrUnknownQuestion = errors.New("question not found")

	// ErrSuperseded is returned by Refresh when a newer refresh or a source
	// change made this response stale. The response is discarded.
	ErrSuperseded = errors.New("refresh superseded by a newer request")

	// ErrRolledBack matches every *RollbackError.
	ErrRolledBack = errors.New("optimistic change rolled back")
)

// RollbackError reports that a configured endpoint refused or failed a
// change and the local value was restored.
type RollbackError struct {
	Name  string
	Field Field
	Cause error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%s change for %q rolled back: %v", e.Field, e.Name, e.Cause)
}

func (e *RollbackError) Unwrap() error {
	return e.Cause
}

func (e *RollbackError) Is(target error) bool {
	return target == ErrRolledBack
}
