package library

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"splice/internal/source"
)

// TransitionFunc receives every applied media transition plus progress
// notifications (delivered with old == new). Calls for one item never
// overlap and arrive in the order the transitions were applied.
type TransitionFunc func(old, new Status, tc TransitionContext)

// Snapshot is a point-in-time copy of an item's observable state.
type Snapshot struct {
	ID           string
	Name         string
	MediaType    MediaType
	Status       Status
	Progress     int
	ErrorMessage string
	Source       source.Snapshot
	Metadata     *Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is one piece of media in the project library. It owns its data source
// exclusively and promotes the source's acquisition status into the media
// status vocabulary.
type Item struct {
	// transitionMu serializes transitions together with their notification
	// delivery. mu guards field access only and is never held while a
	// callback runs.
	transitionMu sync.Mutex
	mu           sync.Mutex

	id             string
	name           string
	mediaType      MediaType
	status         Status
	errMsg         string
	metadata       *Metadata
	decodeAttempts int
	createdAt      time.Time
	updatedAt      time.Time

	src          *source.Source
	onTransition TransitionFunc
	logger       *slog.Logger
}

// ItemOption adjusts construction of an Item.
type ItemOption func(*Item)

// WithID pins the item id instead of generating one.
func WithID(id string) ItemOption {
	return func(i *Item) { i.id = id }
}

// WithLogger sets the logger used for promotion failures.
func WithLogger(logger *slog.Logger) ItemOption {
	return func(i *Item) { i.logger = logger }
}

// WithMediaType pins the media type instead of classifying by extension.
func WithMediaType(mt MediaType) ItemOption {
	return func(i *Item) { i.mediaType = mt }
}

// NewItem wraps a data source in a library item. The item installs itself as
// the source's change callback so acquisition status changes promote the
// media status automatically.
func NewItem(name string, src *source.Source, opts ...ItemOption) *Item {
	now := time.Now().UTC()
	item := &Item{
		id:        uuid.NewString(),
		name:      norm.NFC.String(name),
		status:    StatusPending,
		src:       src,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(item)
	}
	if item.mediaType == "" {
		item.mediaType = TypeForPath(item.name)
	}
	if src != nil {
		src.SetChangeFunc(item.promote)
	}
	return item
}

// RestoreItem rebuilds an item from persisted state without replaying its
// transitions. In-flight statuses cannot be restored; callers reset those to
// pending before restoring. Ready items must carry their decoded metadata.
func RestoreItem(id, name string, mediaType MediaType, status Status, md *Metadata, src *source.Source, opts ...ItemOption) (*Item, error) {
	if _, ok := statusSet[status]; !ok {
		return nil, errors.New("unknown media status: " + string(status))
	}
	if IsProcessingStatus(status) {
		return nil, errors.New("cannot restore in-flight status " + string(status))
	}
	if status == StatusReady && md == nil {
		return nil, ErrMetadataRequired
	}
	if status != StatusReady {
		md = nil
	}
	item := NewItem(name, src, opts...)
	item.id = id
	item.status = status
	item.metadata = md.clone()
	if mediaType != "" {
		item.mediaType = mediaType
	}
	return item, nil
}

// ID returns the item identifier.
func (i *Item) ID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id
}

// Name returns the item's display name.
func (i *Item) Name() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.name
}

// MediaType returns the current classification.
func (i *Item) MediaType() MediaType {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mediaType
}

// Status returns the current media status.
func (i *Item) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Source returns the owned data source.
func (i *Item) Source() *source.Source {
	return i.src
}

// Metadata returns a copy of the decoded metadata, or nil outside ready.
func (i *Item) Metadata() *Metadata {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.metadata.clone()
}

// ErrorMessage returns the most recent failure message, if any.
func (i *Item) ErrorMessage() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errMsg
}

// CreatedAt returns the creation timestamp.
func (i *Item) CreatedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.createdAt
}

// UpdatedAt returns the timestamp of the last applied transition.
func (i *Item) UpdatedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.updatedAt
}

// IsReady reports whether the item is ready for timeline use.
func (i *Item) IsReady() bool {
	return i.Status() == StatusReady
}

// IsProcessing reports whether acquisition or decoding is in flight.
func (i *Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status())
}

// HasError reports whether the item sits in the error status.
func (i *Item) HasError() bool {
	return i.Status() == StatusError
}

// Progress returns the acquisition progress while asyncprocessing. The
// second return is false in every other status.
func (i *Item) Progress() (int, bool) {
	if i.Status() != StatusAsyncProcessing {
		return 0, false
	}
	if i.src == nil {
		return 0, true
	}
	return i.src.Progress(), true
}

// OriginalSize returns the decoded dimensions once metadata is present.
func (i *Item) OriginalSize() (width, height int, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.metadata == nil {
		return 0, 0, false
	}
	return i.metadata.Width, i.metadata.Height, true
}

// Duration returns the decoded duration in frames once metadata is present.
func (i *Item) Duration() (int64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.metadata == nil {
		return 0, false
	}
	return i.metadata.DurationFrames, true
}

// Snapshot returns a copy of the item's observable state.
func (i *Item) Snapshot() Snapshot {
	var srcSnap source.Snapshot
	if i.src != nil {
		srcSnap = i.src.Snapshot()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return Snapshot{
		ID:           i.id,
		Name:         i.name,
		MediaType:    i.mediaType,
		Status:       i.status,
		Progress:     srcSnap.Progress,
		ErrorMessage: i.errMsg,
		Source:       srcSnap,
		Metadata:     i.metadata.clone(),
		CreatedAt:    i.createdAt,
		UpdatedAt:    i.updatedAt,
	}
}

// SetOnTransition installs the single notification callback. Installing a
// new callback replaces the previous one.
func (i *Item) SetOnTransition(fn TransitionFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onTransition = fn
}

// TransitionTo verifies the edge against the legality table, mutates the
// item, then delivers the notification. A transition to ready must arrive as
// a ParseCompletedContext carrying metadata; leaving ready drops the
// metadata. Callbacks must not transition the same item re-entrantly.
func (i *Item) TransitionTo(next Status, tc TransitionContext) error {
	i.transitionMu.Lock()
	defer i.transitionMu.Unlock()

	i.mu.Lock()
	cur := i.status
	if !CanTransition(cur, next) {
		i.mu.Unlock()
		return &TransitionError{From: cur, To: next}
	}
	if next == StatusReady {
		pc, ok := tc.(ParseCompletedContext)
		if !ok || pc.Metadata == nil {
			i.mu.Unlock()
			return ErrMetadataRequired
		}
		i.metadata = pc.Metadata.clone()
		if i.mediaType == TypeUnknown {
			i.mediaType = pc.Metadata.impliedType()
		}
	}
	if cur == StatusReady && next != StatusReady {
		i.metadata = nil
	}
	switch c := tc.(type) {
	case ErrorContext:
		i.errMsg = c.Message
	case MissingContext:
		i.errMsg = c.Message
	}
	if next == StatusPending {
		i.errMsg = ""
	}
	i.status = next
	i.updatedAt = time.Now().UTC()
	fn := i.onTransition
	i.mu.Unlock()

	if fn != nil {
		fn(cur, next, tc)
	}
	return nil
}

// CompleteDecoding attaches decoded metadata and moves the item to ready.
func (i *Item) CompleteDecoding(md *Metadata) error {
	return i.TransitionTo(StatusReady, ParseCompletedContext{Metadata: md})
}

// Cancel aborts an in-flight acquisition. It is a no-op unless the item is
// asyncprocessing.
func (i *Item) Cancel() error {
	if i.Status() != StatusAsyncProcessing {
		return nil
	}
	if i.src == nil {
		return nil
	}
	err := i.src.Cancel()
	if errors.Is(err, source.ErrInvalidTransition) {
		// Lost the race against a terminal acquisition event.
		return nil
	}
	return err
}

// Retry recovers an item from error or cancelled. When the source holds the
// failure it is retried and its events re-promote the item; when the source
// already has its bytes (a decode failure) the item resets to pending so the
// owner can reschedule decoding. Any other status is a no-op.
func (i *Item) Retry(ctx context.Context) error {
	switch i.Status() {
	case StatusError, StatusCancelled:
	default:
		return nil
	}
	if i.src != nil && source.IsRetryable(i.src.Status()) {
		return i.src.Retry(ctx)
	}
	i.mu.Lock()
	i.decodeAttempts++
	attempt := i.decodeAttempts
	i.mu.Unlock()
	return i.TransitionTo(StatusPending, RetryContext{Attempt: attempt})
}

// Close aborts any outstanding acquisition. Items are closed when removed
// from their index.
func (i *Item) Close() {
	if i.src != nil {
		i.src.Close()
	}
}

// promote is installed as the source's change callback and mirrors
// acquisition changes into the media status vocabulary.
func (i *Item) promote(oldSrc, newSrc source.Status, event source.Event) {
	if oldSrc == newSrc {
		if ev, ok := event.(source.ProgressEvent); ok {
			i.notifyProgress(ev)
		}
		return
	}
	target := StatusForSource(newSrc)
	if err := i.TransitionTo(target, contextForEvent(event)); err != nil {
		i.loggerRef().Error("media status promotion failed",
			slog.String("media_id", i.ID()),
			slog.String("source_status", string(newSrc)),
			slog.String("target_status", string(target)),
			slog.Any("error", err))
	}
}

// notifyProgress forwards acquisition progress through the notification
// callback without a status change.
func (i *Item) notifyProgress(ev source.ProgressEvent) {
	i.transitionMu.Lock()
	defer i.transitionMu.Unlock()

	i.mu.Lock()
	cur := i.status
	fn := i.onTransition
	i.mu.Unlock()

	if cur != StatusAsyncProcessing || fn == nil {
		return
	}
	fn(cur, cur, ProgressUpdateContext{
		Progress:    ev.Progress,
		BytesCopied: ev.BytesCopied,
		TotalBytes:  ev.TotalBytes,
		Speed:       ev.Speed,
		ETA:         ev.ETA,
	})
}

func (i *Item) loggerRef() *slog.Logger {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.logger != nil {
		return i.logger
	}
	return slog.Default()
}
