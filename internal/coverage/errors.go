package coverage

import (
	"errors"
	"fmt"
)

// ErrInvalidState is matched by every *InvalidStateError via errors.Is.
var ErrInvalidState = errors.New("invalid coverage state")

// InvalidStateError reports a start/stop (or lifecycle event) issued out of
// order. It means the caller broke the lifecycle contract and should be
// treated as fatal to the run.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("coverage: cannot %s: %s", e.Op, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidState) hold.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// IsInvalidState reports whether err wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
