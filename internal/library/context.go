package library

import (
	"time"

	"splice/internal/source"
)

// ContextKind discriminates transition context payloads.
type ContextKind string

const (
	KindAsyncProcessing   ContextKind = "async_processing"
	KindProgressUpdate    ContextKind = "progress_update"
	KindDownloadCompleted ContextKind = "download_completed"
	KindParseCompleted    ContextKind = "parse_completed"
	KindError             ContextKind = "error"
	KindCancelled         ContextKind = "cancelled"
	KindRetry             ContextKind = "retry"
	KindMissing           ContextKind = "missing"
	KindReplaced          ContextKind = "replaced"
)

// TransitionContext is the tagged payload attached to a media transition.
// Each variant carries only the fields relevant to its cause; consumers
// switch on the concrete type or on ContextKind.
type TransitionContext interface {
	ContextKind() ContextKind
}

// AsyncProcessingContext accompanies the move into asyncprocessing.
type AsyncProcessingContext struct {
	TaskID string
}

func (AsyncProcessingContext) ContextKind() ContextKind { return KindAsyncProcessing }

// ProgressUpdateContext accompanies acquisition progress notifications,
// which are delivered with old == new and no status change.
type ProgressUpdateContext struct {
	Progress    int
	BytesCopied int64
	TotalBytes  int64
	Speed       string
	ETA         time.Duration
}

func (ProgressUpdateContext) ContextKind() ContextKind { return KindProgressUpdate }

// DownloadCompletedContext accompanies the move into webavdecoding once the
// bytes are local.
type DownloadCompletedContext struct {
	Path string
	URL  string
}

func (DownloadCompletedContext) ContextKind() ContextKind { return KindDownloadCompleted }

// ParseCompletedContext accompanies the move into ready and carries the
// decoded metadata that move requires.
type ParseCompletedContext struct {
	Metadata *Metadata
}

func (ParseCompletedContext) ContextKind() ContextKind { return KindParseCompleted }

// ErrorContext accompanies the move into error.
type ErrorContext struct {
	Message string
}

func (ErrorContext) ContextKind() ContextKind { return KindError }

// CancelledContext accompanies the move into cancelled.
type CancelledContext struct{}

func (CancelledContext) ContextKind() ContextKind { return KindCancelled }

// RetryContext accompanies the reset back to pending.
type RetryContext struct {
	Attempt int
}

func (RetryContext) ContextKind() ContextKind { return KindRetry }

// MissingContext accompanies the move into missing.
type MissingContext struct {
	Path    string
	Message string
}

func (MissingContext) ContextKind() ContextKind { return KindMissing }

// ReplacedContext accompanies a relink that swapped the backing path.
type ReplacedContext struct {
	OldPath string
	NewPath string
}

func (ReplacedContext) ContextKind() ContextKind { return KindReplaced }

// contextForEvent translates a source acquisition event into the media
// transition context it implies.
func contextForEvent(event source.Event) TransitionContext {
	switch ev := event.(type) {
	case source.StartedEvent:
		return AsyncProcessingContext{TaskID: ev.TaskID}
	case source.ProgressEvent:
		return ProgressUpdateContext{
			Progress:    ev.Progress,
			BytesCopied: ev.BytesCopied,
			TotalBytes:  ev.TotalBytes,
			Speed:       ev.Speed,
			ETA:         ev.ETA,
		}
	case source.AcquiredEvent:
		return DownloadCompletedContext{Path: ev.Path, URL: ev.URL}
	case source.ErrorEvent:
		return ErrorContext{Message: ev.Message}
	case source.CancelledEvent:
		return CancelledContext{}
	case source.MissingEvent:
		return MissingContext{Path: ev.Path, Message: ev.Message}
	case source.RetryEvent:
		return RetryContext{Attempt: ev.Attempt}
	default:
		return nil
	}
}
