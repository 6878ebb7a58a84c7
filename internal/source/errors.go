package source

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition marks a requested status edge that is not in the
// legality table. It always indicates a caller bug, never a runtime
// condition, so it should be surfaced loudly rather than swallowed.
var ErrInvalidTransition = errors.New("invalid source transition")

// ErrNotAcquiring is returned by progress updates issued outside an active
// acquisition.
var ErrNotAcquiring = errors.New("source is not acquiring")

// TransitionError reports an illegal status edge, naming both endpoints.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid source transition %s -> %s", e.From, e.To)
}

// Is lets errors.Is match any TransitionError against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
