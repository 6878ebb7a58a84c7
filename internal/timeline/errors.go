package timeline

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition marks a requested presentation edge that is not in
// the legality table. Compare with errors.Is; the concrete error is a
// *TransitionError naming both endpoints.
var ErrInvalidTransition = errors.New("invalid timeline transition")

// ErrHandleRequired is returned when a transition to ready arrives without a
// runtime handle.
var ErrHandleRequired = errors.New("ready transition requires a runtime handle")

// ErrDisposed is returned when a detached item is asked to transition.
var ErrDisposed = errors.New("timeline item is disposed")

// TransitionError reports a rejected presentation transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid timeline transition %s -> %s", e.From, e.To)
}

// Is lets errors.Is match any TransitionError against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
