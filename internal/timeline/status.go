package timeline

import (
	"strings"

	"splice/internal/library"
)

// Status represents the presentation state of a timeline item.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

var allStatuses = []Status{
	StatusLoading,
	StatusReady,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// legalTransitions is the timeline transition graph. Any edge not listed is
// rejected. `ready` can fall back to `loading` when the backing media is
// reprocessed, and `error` recovers to either side once a retry lands.
var legalTransitions = map[Status][]Status{
	StatusLoading: {StatusReady, StatusError},
	StatusReady:   {StatusLoading, StatusError},
	StatusError:   {StatusLoading, StatusReady},
}

// statusForMedia collapses the media status vocabulary into the three
// presentation states. It is total over the media statuses.
var statusForMedia = map[library.Status]Status{
	library.StatusPending:         StatusLoading,
	library.StatusAsyncProcessing: StatusLoading,
	library.StatusWebAVDecoding:   StatusLoading,
	library.StatusReady:           StatusReady,
	library.StatusError:           StatusError,
	library.StatusCancelled:       StatusError,
	library.StatusMissing:         StatusError,
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

// StatusForMedia maps a media status to the presentation state it implies.
func StatusForMedia(s library.Status) Status {
	return statusForMedia[s]
}
