package timeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage values used in status contexts. They name what the backing media is
// doing in player-facing terms.
const (
	StageWaiting   = "waiting"
	StageAcquiring = "acquiring"
	StageDecoding  = "decoding"
	StageFailed    = "failed"
	StageMissing   = "missing"
	StageCancelled = "cancelled"
)

// StatusContext explains why an item is loading or in error, in terms the
// player UI can show directly. Progress is only set while acquisition runs.
type StatusContext struct {
	Stage     string
	Message   string
	Progress  *int
	CanRetry  bool
	CanCancel bool
}

// Handle is the runtime playback resource for a ready item. Path points at
// the proxy when one was built, otherwise at the original media file.
type Handle struct {
	MediaItemID    string
	Path           string
	Proxy          bool
	Width          int
	Height         int
	DurationFrames int64
	ThumbnailPath  string
}

// Transform positions a clip inside the frame.
type Transform struct {
	X        float64
	Y        float64
	Scale    float64
	Rotation float64
	Opacity  float64
}

// Placement is the clip's slot on the timeline, in frames.
type Placement struct {
	Position  int64
	Duration  int64
	Transform Transform
}

// ChangeFunc receives every applied presentation transition plus status
// context refreshes (delivered with old == new). Calls for one item never
// overlap and arrive in the order they were applied.
type ChangeFunc func(old, new Status, sc StatusContext)

// Snapshot is a point-in-time copy of an item's observable state.
type Snapshot struct {
	ID            string
	MediaItemID   string
	TrackID       string
	Status        Status
	StatusContext StatusContext
	Placement     Placement
	Handle        *Handle
	Disposed      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is one clip on the timeline. It references its library item by id and
// never outlives explicit removal. Items always start at loading, even when
// the backing media is already ready; the syncer flips them.
type Item struct {
	// transitionMu serializes transitions together with their notification
	// delivery. mu guards field access only and is never held while a
	// callback runs.
	transitionMu sync.Mutex
	mu           sync.Mutex

	id          string
	mediaItemID string
	trackID     string
	status      Status
	sc          StatusContext
	placement   Placement
	handle      *Handle
	disposed    bool
	createdAt   time.Time
	updatedAt   time.Time

	onChange ChangeFunc
}

// ItemOption adjusts construction of an Item.
type ItemOption func(*Item)

// WithID pins the item id instead of generating one.
func WithID(id string) ItemOption {
	return func(i *Item) { i.id = id }
}

// WithTrack places the item on the given track.
func WithTrack(trackID string) ItemOption {
	return func(i *Item) { i.trackID = trackID }
}

// WithPlacement sets the initial placement.
func WithPlacement(p Placement) ItemOption {
	return func(i *Item) { i.placement = p }
}

// WithChangeFunc installs the notification callback at construction.
func WithChangeFunc(fn ChangeFunc) ItemOption {
	return func(i *Item) { i.onChange = fn }
}

// NewItem creates a timeline item referencing the given library item.
func NewItem(mediaItemID string, opts ...ItemOption) *Item {
	now := time.Now().UTC()
	item := &Item{
		id:          uuid.NewString(),
		mediaItemID: mediaItemID,
		status:      StatusLoading,
		sc:          StatusContext{Stage: StageWaiting},
		placement:   Placement{Transform: Transform{Scale: 1, Opacity: 1}},
		createdAt:   now,
		updatedAt:   now,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// ID returns the item identifier.
func (i *Item) ID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id
}

// MediaItemID returns the referenced library item's id.
func (i *Item) MediaItemID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mediaItemID
}

// TrackID returns the track this item sits on.
func (i *Item) TrackID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.trackID
}

// Status returns the current presentation status.
func (i *Item) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// StatusContext returns the current status context.
func (i *Item) StatusContext() StatusContext {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sc
}

// Handle returns the runtime handle, or nil outside ready.
func (i *Item) Handle() *Handle {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handle
}

// Placement returns the current placement.
func (i *Item) Placement() Placement {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.placement
}

// SetPlacement updates the clip's slot on the timeline.
func (i *Item) SetPlacement(p Placement) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.placement = p
	i.updatedAt = time.Now().UTC()
}

// IsDisposed reports whether the item was detached from the timeline.
func (i *Item) IsDisposed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.disposed
}

// CreatedAt returns the creation timestamp.
func (i *Item) CreatedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.createdAt
}

// UpdatedAt returns the timestamp of the last applied change.
func (i *Item) UpdatedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.updatedAt
}

// Snapshot returns a copy of the item's observable state.
func (i *Item) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	var handle *Handle
	if i.handle != nil {
		cp := *i.handle
		handle = &cp
	}
	return Snapshot{
		ID:            i.id,
		MediaItemID:   i.mediaItemID,
		TrackID:       i.trackID,
		Status:        i.status,
		StatusContext: i.sc,
		Placement:     i.placement,
		Handle:        handle,
		Disposed:      i.disposed,
		CreatedAt:     i.createdAt,
		UpdatedAt:     i.updatedAt,
	}
}

// SetOnChange installs the single notification callback. Installing a new
// callback replaces the previous one.
func (i *Item) SetOnChange(fn ChangeFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onChange = fn
}

// TransitionTo verifies the edge against the legality table, mutates the
// item, then delivers the notification. A transition to ready must carry a
// runtime handle and the attach happens atomically with the flip, so no
// observer sees ready without a handle; leaving ready releases the handle.
func (i *Item) TransitionTo(next Status, handle *Handle, sc StatusContext) error {
	i.transitionMu.Lock()
	defer i.transitionMu.Unlock()

	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return ErrDisposed
	}
	cur := i.status
	if !CanTransition(cur, next) {
		i.mu.Unlock()
		return &TransitionError{From: cur, To: next}
	}
	if next == StatusReady {
		if handle == nil {
			i.mu.Unlock()
			return ErrHandleRequired
		}
		i.handle = handle
	} else {
		i.handle = nil
	}
	i.status = next
	i.sc = sc
	i.updatedAt = time.Now().UTC()
	fn := i.onChange
	i.mu.Unlock()

	if fn != nil {
		fn(cur, next, sc)
	}
	return nil
}

// UpdateStatusContext refreshes the status context without a transition and
// delivers it as an old == new notification. Refreshes outside loading or on
// a disposed item are dropped.
func (i *Item) UpdateStatusContext(sc StatusContext) {
	i.transitionMu.Lock()
	defer i.transitionMu.Unlock()

	i.mu.Lock()
	if i.disposed || i.status != StatusLoading {
		i.mu.Unlock()
		return
	}
	i.sc = sc
	i.updatedAt = time.Now().UTC()
	cur := i.status
	fn := i.onChange
	i.mu.Unlock()

	if fn != nil {
		fn(cur, cur, sc)
	}
}

// Detach removes the item from the timeline: the handle is released and all
// further transitions and refreshes are rejected. Detach is idempotent.
func (i *Item) Detach() {
	i.transitionMu.Lock()
	defer i.transitionMu.Unlock()

	i.mu.Lock()
	defer i.mu.Unlock()
	i.disposed = true
	i.handle = nil
	i.updatedAt = time.Now().UTC()
}
