package syncer

import (
	"context"
	"log/slog"
	"sync"

	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/timeline"
)

// HandleBuilder produces the runtime playback resource for a ready media
// item, typically by building or reusing a preview proxy.
type HandleBuilder interface {
	BuildHandle(ctx context.Context, item *library.Item, placed *timeline.Item) (*timeline.Handle, error)
}

// ThumbnailMaker produces a poster frame for a ready media item. Thumbnails
// are best-effort; failures never block readiness.
type ThumbnailMaker interface {
	MakeThumbnail(ctx context.Context, item *library.Item) (string, error)
}

// Synchronizer routes media item lifecycles to their timeline items and
// pending history commands. One registration exists per consumer/media pair;
// terminal statuses are handled exactly once per registration.
type Synchronizer struct {
	ctx     context.Context
	handles HandleBuilder
	thumbs  ThumbnailMaker
	logger  *slog.Logger

	registry *registry

	mu      sync.Mutex
	watches map[string]*Watch
}

// Option adjusts construction of a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger for best-effort failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThumbnails wires the poster-frame collaborator.
func WithThumbnails(thumbs ThumbnailMaker) Option {
	return func(s *Synchronizer) { s.thumbs = thumbs }
}

// NewSynchronizer wires the rendering collaborator used when media becomes
// ready. ctx bounds collaborator calls for the synchronizer's lifetime.
func NewSynchronizer(ctx context.Context, handles HandleBuilder, opts ...Option) *Synchronizer {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Synchronizer{
		ctx:      ctx,
		handles:  handles,
		logger:   logging.NewNop(),
		registry: newRegistry(),
		watches:  make(map[string]*Watch),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTimelineItem wires a timeline item to its backing media. While the
// media processes, progress flows into the item's status context; on ready
// the item receives a runtime handle; on failure it goes to error. If the
// media is already ready the ready step runs immediately and nothing is
// subscribed. The registration replaces any prior one under the same key.
func (s *Synchronizer) RegisterTimelineItem(item *library.Item, placed *timeline.Item) RegistrationKey {
	reg := &registration{
		key:      RegistrationKey{ConsumerID: placed.ID(), MediaItemID: item.ID()},
		scenario: ScenarioTimeline,
		item:     item,
		placed:   placed,
	}
	s.register(reg)
	return reg.key
}

// RegisterCommand wires a history command to its backing media so the
// command's cached media details refresh once decoding completes.
func (s *Synchronizer) RegisterCommand(cmd Command, item *library.Item, timelineItemID string) RegistrationKey {
	reg := &registration{
		key:      RegistrationKey{ConsumerID: cmd.ID(), MediaItemID: item.ID()},
		scenario: ScenarioCommand,
		item:     item,
		cmd:      cmd,
		placedID: timelineItemID,
	}
	s.register(reg)
	return reg.key
}

func (s *Synchronizer) register(reg *registration) {
	if old := s.registry.put(reg); old != nil {
		s.finish(old)
	}

	if reg.item.IsReady() {
		if reg.done.CompareAndSwap(false, true) {
			s.complete(reg)
			s.registry.removeIf(reg.key, reg)
		}
		return
	}

	watch := s.watchFor(reg.item)
	unsub := watch.Subscribe(func(old, new library.Status, tc library.TransitionContext) {
		s.deliver(reg, new, tc)
	})
	if !reg.setUnsub(unsub) {
		// The subscribe-time delivery already finished the registration.
		unsub()
	}
}

// Observe subscribes fn to every transition of item through the same watch
// the registrations use, so registering a timeline item or command never
// displaces another listener. The returned function cancels the
// subscription; the watch itself lives until ReleaseItem.
func (s *Synchronizer) Observe(item *library.Item, fn library.TransitionFunc) func() {
	return s.watchFor(item).Subscribe(fn)
}

// Cleanup tears down the registration under key. Cleaning up an unknown or
// already-finished key is a no-op.
func (s *Synchronizer) Cleanup(key RegistrationKey) {
	if reg := s.registry.take(key); reg != nil {
		s.finish(reg)
	}
}

// ReleaseItem tears down every registration watching the given media item
// and detaches its watch. Called when the item leaves the library.
func (s *Synchronizer) ReleaseItem(mediaItemID string) {
	for _, key := range s.registry.keysForMedia(mediaItemID) {
		s.Cleanup(key)
	}
	s.mu.Lock()
	watch := s.watches[mediaItemID]
	delete(s.watches, mediaItemID)
	s.mu.Unlock()
	if watch != nil {
		watch.Close()
	}
}

// Has reports whether a live registration exists under key.
func (s *Synchronizer) Has(key RegistrationKey) bool {
	return s.registry.has(key)
}

// ActiveRegistrations reports the number of live registrations.
func (s *Synchronizer) ActiveRegistrations() int {
	return s.registry.len()
}

func (s *Synchronizer) watchFor(item *library.Item) *Watch {
	id := item.ID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if watch, ok := s.watches[id]; ok {
		return watch
	}
	watch := NewWatch(item)
	s.watches[id] = watch
	return watch
}

// deliver routes one media notification into the registration. Terminal
// statuses flip done first so the end step runs exactly once even when the
// subscribe-time delivery races a real transition.
func (s *Synchronizer) deliver(reg *registration, status library.Status, tc library.TransitionContext) {
	switch timeline.StatusForMedia(status) {
	case timeline.StatusReady:
		if !reg.done.CompareAndSwap(false, true) {
			return
		}
		s.complete(reg)
		s.unwire(reg)
	case timeline.StatusError:
		if !reg.done.CompareAndSwap(false, true) {
			return
		}
		s.fail(reg, status, tc)
		s.unwire(reg)
	default:
		if !reg.done.Load() {
			s.forwardProgress(reg, status, tc)
		}
	}
}

// finish ends a registration without running its end step: evictions and
// external cleanup silence the subscription and drop the map entry.
func (s *Synchronizer) finish(reg *registration) {
	reg.done.Store(true)
	if unsub := reg.takeUnsub(); unsub != nil {
		unsub()
	}
}

func (s *Synchronizer) unwire(reg *registration) {
	if unsub := reg.takeUnsub(); unsub != nil {
		unsub()
	}
	s.registry.removeIf(reg.key, reg)
}

func (s *Synchronizer) complete(reg *registration) {
	switch reg.scenario {
	case ScenarioTimeline:
		s.becomeReady(reg)
	case ScenarioCommand:
		if reg.cmd.IsDisposed() {
			return
		}
		reg.cmd.UpdateMediaData(reg.item, reg.placedID)
	}
}

// becomeReady attaches a runtime handle and flips the timeline item to
// ready. It only acts on items still loading; collaborator failures degrade
// to a handle wrapping the original media path, so readiness never fails.
func (s *Synchronizer) becomeReady(reg *registration) {
	placed := reg.placed
	if placed.IsDisposed() || placed.Status() != timeline.StatusLoading {
		return
	}

	handle := s.buildHandle(reg)
	if err := placed.TransitionTo(timeline.StatusReady, handle, timeline.StatusContext{}); err != nil {
		s.logger.Warn("timeline item refused ready transition",
			slog.String("timeline_item_id", placed.ID()),
			slog.String("media_id", reg.item.ID()),
			slog.Any("error", err))
	}
}

func (s *Synchronizer) buildHandle(reg *registration) *timeline.Handle {
	item := reg.item
	handle, err := s.handles.BuildHandle(s.ctx, item, reg.placed)
	if err != nil || handle == nil {
		if err != nil {
			s.logger.Warn("proxy build failed, using original media",
				slog.String("media_id", item.ID()),
				slog.Any("error", err))
		}
		handle = &timeline.Handle{
			MediaItemID: item.ID(),
			Path:        item.Source().Path(),
		}
		if md := item.Metadata(); md != nil {
			handle.Width = md.Width
			handle.Height = md.Height
			handle.DurationFrames = md.DurationFrames
		}
	}
	if handle.MediaItemID == "" {
		handle.MediaItemID = item.ID()
	}
	if s.thumbs != nil && handle.ThumbnailPath == "" {
		thumb, err := s.thumbs.MakeThumbnail(s.ctx, item)
		if err != nil {
			s.logger.Warn("thumbnail generation failed",
				slog.String("media_id", item.ID()),
				slog.Any("error", err))
		} else {
			handle.ThumbnailPath = thumb
		}
	}
	return handle
}

// fail marks the registration's timeline item as errored. Missing media is
// not retryable in place; the user relinks the file instead.
func (s *Synchronizer) fail(reg *registration, status library.Status, tc library.TransitionContext) {
	if reg.scenario != ScenarioTimeline {
		return
	}
	placed := reg.placed
	if placed.IsDisposed() || placed.Status() == timeline.StatusError {
		return
	}

	sc := timeline.StatusContext{Stage: timeline.StageFailed, CanRetry: true}
	switch status {
	case library.StatusMissing:
		sc.Stage = timeline.StageMissing
		sc.CanRetry = false
	case library.StatusCancelled:
		sc.Stage = timeline.StageCancelled
	}
	switch c := tc.(type) {
	case library.ErrorContext:
		sc.Message = c.Message
	case library.MissingContext:
		sc.Message = c.Message
	}
	if sc.Message == "" {
		sc.Message = reg.item.ErrorMessage()
	}

	if err := placed.TransitionTo(timeline.StatusError, nil, sc); err != nil {
		s.logger.Warn("timeline item refused error transition",
			slog.String("timeline_item_id", placed.ID()),
			slog.String("media_id", reg.item.ID()),
			slog.Any("error", err))
	}
}

// forwardProgress refreshes the timeline item's status context while the
// media is still in flight.
func (s *Synchronizer) forwardProgress(reg *registration, status library.Status, tc library.TransitionContext) {
	if reg.scenario != ScenarioTimeline {
		return
	}

	sc := timeline.StatusContext{Stage: timeline.StageWaiting}
	switch status {
	case library.StatusAsyncProcessing:
		sc.Stage = timeline.StageAcquiring
		sc.CanCancel = true
		if pc, ok := tc.(library.ProgressUpdateContext); ok {
			progress := pc.Progress
			sc.Progress = &progress
		} else if progress, ok := reg.item.Progress(); ok {
			sc.Progress = &progress
		}
	case library.StatusWebAVDecoding:
		sc.Stage = timeline.StageDecoding
	}
	reg.placed.UpdateStatusContext(sc)
}
