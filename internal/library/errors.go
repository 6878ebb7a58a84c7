package library

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition marks a requested media status edge that is not in
// the legality table. It indicates a caller bug and must never be silently
// ignored.
var ErrInvalidTransition = errors.New("invalid media transition")

// ErrMetadataRequired is returned when a transition to ready arrives without
// decoded metadata.
var ErrMetadataRequired = errors.New("ready transition requires decoded metadata")

// ErrDuplicateItem is returned when an index already holds the given id.
var ErrDuplicateItem = errors.New("media item already indexed")

// TransitionError reports an illegal media status edge, naming both
// endpoints.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid media transition %s -> %s", e.From, e.To)
}

// Is lets errors.Is match any TransitionError against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
