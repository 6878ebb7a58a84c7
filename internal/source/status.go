package source

import "strings"

// Status represents the acquisition lifecycle of a data source.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAcquiring Status = "acquiring"
	StatusAcquired  Status = "acquired"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
	StatusMissing   Status = "missing"
)

var allStatuses = []Status{
	StatusPending,
	StatusAcquiring,
	StatusAcquired,
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

// legalTransitions is the full acquisition transition graph. Any edge not
// listed here is rejected. `acquired` can still fall to `error` so post-hoc
// corruption detection has a path; `missing` recovers through `pending` once
// a replacement path is supplied.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusAcquiring, StatusError, StatusMissing},
	StatusAcquiring: {StatusAcquired, StatusError, StatusCancelled},
	StatusAcquired:  {StatusError},
	StatusError:     {StatusPending},
	StatusCancelled: {StatusPending},
	StatusMissing:   {StatusPending, StatusError},
}

// retryableStatuses are the statuses Retry accepts as a starting point.
var retryableStatuses = map[Status]struct{}{
	StatusError:     {},
	StatusCancelled: {},
	StatusMissing:   {},
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

// IsRetryable reports whether Retry is accepted from the given status.
func IsRetryable(status Status) bool {
	_, ok := retryableStatuses[status]
	return ok
}
