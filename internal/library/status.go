package library

import (
	"strings"

	"splice/internal/source"
)

// Status represents the processing lifecycle of a media item.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAsyncProcessing Status = "asyncprocessing"
	StatusWebAVDecoding   Status = "webavdecoding"
	StatusReady           Status = "ready"
	StatusError           Status = "error"
	StatusCancelled       Status = "cancelled"
	StatusMissing         Status = "missing"
)

var allStatuses = []Status{
	StatusPending,
	StatusAsyncProcessing,
	StatusWebAVDecoding,
	StatusReady,
	StatusError,
	StatusCancelled,
	StatusMissing,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAsyncProcessing: {},
	StatusWebAVDecoding:   {},
}

// terminalStatuses are the statuses that end a synchronizer subscription.
var terminalStatuses = map[Status]struct{}{
	StatusReady:     {},
	StatusError:     {},
	StatusCancelled: {},
	StatusMissing:   {},
}

// legalTransitions is the full media transition graph. Any edge not listed
// here is rejected. pending reaches webavdecoding directly for sources whose
// bytes are already local; error and cancelled recover through pending.
var legalTransitions = map[Status][]Status{
	StatusPending:         {StatusAsyncProcessing, StatusWebAVDecoding, StatusError, StatusMissing},
	StatusAsyncProcessing: {StatusWebAVDecoding, StatusError, StatusCancelled},
	StatusWebAVDecoding:   {StatusReady, StatusError},
	StatusReady:           {StatusError},
	StatusError:           {StatusPending},
	StatusCancelled:       {StatusPending},
	StatusMissing:         {StatusPending, StatusError},
}

// statusForSource collapses an acquisition status into the media status it
// implies. The table is total over the source vocabulary.
var statusForSource = map[source.Status]Status{
	source.StatusPending:   StatusPending,
	source.StatusAcquiring: StatusAsyncProcessing,
	source.StatusAcquired:  StatusWebAVDecoding,
	source.StatusError:     StatusError,
	source.StatusCancelled: StatusCancelled,
	source.StatusMissing:   StatusMissing,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status. Unknown values yield
// the empty status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// CanTransition reports whether the edge from -> to is in the legality table.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusForSource maps an acquisition status to its media status.
func StatusForSource(s source.Status) Status {
	return statusForSource[s]
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends a synchronizer subscription.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}
