package source

import "time"

// EventKind discriminates the acquisition events attached to change
// notifications.
type EventKind string

const (
	EventKindStarted   EventKind = "started"
	EventKindProgress  EventKind = "progress"
	EventKindAcquired  EventKind = "acquired"
	EventKindError     EventKind = "error"
	EventKindCancelled EventKind = "cancelled"
	EventKindMissing   EventKind = "missing"
	EventKindRetry     EventKind = "retry"
)

// Event is the payload delivered with a source change notification. Each
// variant carries only the fields meaningful for its kind; consumers switch
// on the concrete type or on EventKind.
type Event interface {
	EventKind() EventKind
}

// StartedEvent announces that acquisition began under a fresh task ID.
type StartedEvent struct {
	TaskID string
}

func (StartedEvent) EventKind() EventKind { return EventKindStarted }

// ProgressEvent reports acquisition progress. Bytes, speed, and ETA are only
// populated for transfers that know them.
type ProgressEvent struct {
	Progress    int
	BytesCopied int64
	TotalBytes  int64
	Speed       string
	ETA         time.Duration
}

func (ProgressEvent) EventKind() EventKind { return EventKindProgress }

// AcquiredEvent announces that the bytes landed locally.
type AcquiredEvent struct {
	Path string
	URL  string
}

func (AcquiredEvent) EventKind() EventKind { return EventKindAcquired }

// ErrorEvent carries the failure message recorded on the source.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) EventKind() EventKind { return EventKindError }

// CancelledEvent announces a cooperative cancellation.
type CancelledEvent struct{}

func (CancelledEvent) EventKind() EventKind { return EventKindCancelled }

// MissingEvent announces that a referenced path could not be located.
type MissingEvent struct {
	Path    string
	Message string
}

func (MissingEvent) EventKind() EventKind { return EventKindMissing }

// RetryEvent announces a reset back to pending before re-acquisition.
type RetryEvent struct {
	Attempt int
}

func (RetryEvent) EventKind() EventKind { return EventKindRetry }
