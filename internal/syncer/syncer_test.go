package syncer_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"splice/internal/library"
	"splice/internal/source"
	"splice/internal/syncer"
	"splice/internal/timeline"
)

type stubManager struct {
	mu        sync.Mutex
	started   []string
	cancelled []string
}

func (m *stubManager) StartAcquisition(ctx context.Context, src *source.Source, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, taskID)
	return nil
}

func (m *stubManager) CancelAcquisition(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, taskID)
}

func (m *stubManager) startedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started)
}

type stubHandleBuilder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *stubHandleBuilder) BuildHandle(ctx context.Context, item *library.Item, placed *timeline.Item) (*timeline.Handle, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	handle := &timeline.Handle{
		MediaItemID: item.ID(),
		Path:        "/tmp/proxies/" + item.ID() + ".mp4",
		Proxy:       true,
	}
	if md := item.Metadata(); md != nil {
		handle.Width = md.Width
		handle.Height = md.Height
		handle.DurationFrames = md.DurationFrames
	}
	return handle, nil
}

func (b *stubHandleBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type stubThumbs struct {
	err  error
	path string
}

func (s *stubThumbs) MakeThumbnail(ctx context.Context, item *library.Item) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type stubCommand struct {
	id       string
	disposed bool

	mu      sync.Mutex
	updates []string
}

func (c *stubCommand) ID() string       { return c.id }
func (c *stubCommand) IsDisposed() bool { return c.disposed }

func (c *stubCommand) UpdateMediaData(item *library.Item, timelineItemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, timelineItemID)
}

func (c *stubCommand) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func decodedMetadata() *library.Metadata {
	return &library.Metadata{
		Width:          1920,
		Height:         1080,
		DurationFrames: 375,
		FrameRate:      30,
		VideoCodec:     "h264",
		Container:      "mp4",
		HasVideo:       true,
	}
}

type harness struct {
	manager *stubManager
	src     *source.Source
	item    *library.Item
	placed  *timeline.Item
	builder *stubHandleBuilder
	sync    *syncer.Synchronizer
}

func newHarness(t *testing.T, opts ...syncer.Option) *harness {
	t.Helper()
	manager := &stubManager{}
	src := source.NewRemote("https://example.com/clip.mp4", source.WithManager(manager))
	item := library.NewItem("clip.mp4", src)
	builder := &stubHandleBuilder{}
	return &harness{
		manager: manager,
		src:     src,
		item:    item,
		placed:  timeline.NewItem(item.ID(), timeline.WithTrack("v1")),
		builder: builder,
		sync:    syncer.NewSynchronizer(context.Background(), builder, opts...),
	}
}

func (h *harness) driveToReady(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := h.src.StartAcquisition(ctx); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}
	if err := h.src.MarkAcquired("/tmp/clip.mp4", ""); err != nil {
		t.Fatalf("MarkAcquired failed: %v", err)
	}
	if err := h.item.CompleteDecoding(decodedMetadata()); err != nil {
		t.Fatalf("CompleteDecoding failed: %v", err)
	}
}

func TestRemoteDownloadToReadyFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	key := h.sync.RegisterTimelineItem(h.item, h.placed)
	if !h.sync.Has(key) {
		t.Fatal("registration not live after register")
	}
	if got := h.placed.StatusContext().Stage; got != timeline.StageWaiting {
		t.Fatalf("stage before start = %q, want waiting", got)
	}

	if err := h.src.StartAcquisition(ctx); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}
	sc := h.placed.StatusContext()
	if sc.Stage != timeline.StageAcquiring || !sc.CanCancel {
		t.Fatalf("status context after start = %+v, want cancellable acquiring", sc)
	}

	if err := h.src.UpdateProgress(40); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	sc = h.placed.StatusContext()
	if sc.Progress == nil || *sc.Progress != 40 {
		t.Fatalf("progress not forwarded: %+v", sc)
	}

	if err := h.src.MarkAcquired("/tmp/clip.mp4", ""); err != nil {
		t.Fatalf("MarkAcquired failed: %v", err)
	}
	if got := h.placed.StatusContext().Stage; got != timeline.StageDecoding {
		t.Fatalf("stage after acquire = %q, want decoding", got)
	}
	if got := h.placed.Status(); got != timeline.StatusLoading {
		t.Fatalf("timeline status before decode = %s, want loading", got)
	}

	if err := h.item.CompleteDecoding(decodedMetadata()); err != nil {
		t.Fatalf("CompleteDecoding failed: %v", err)
	}
	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status = %s, want ready", got)
	}
	handle := h.placed.Handle()
	if handle == nil {
		t.Fatal("ready timeline item has no handle")
	}
	if !handle.Proxy || handle.Width != 1920 || handle.DurationFrames != 375 {
		t.Fatalf("handle = %+v, want proxy with decoded dimensions", handle)
	}
	if h.sync.Has(key) || h.sync.ActiveRegistrations() != 0 {
		t.Fatal("registration survived terminal handling")
	}
}

func TestProjectReferencedMissingFlow(t *testing.T) {
	manager := &stubManager{}
	missing := filepath.Join(t.TempDir(), "offline.mp4")
	src := source.NewProjectReferenced(missing, source.WithManager(manager))
	item := library.NewItem("offline.mp4", src)
	placed := timeline.NewItem(item.ID())
	builder := &stubHandleBuilder{}
	s := syncer.NewSynchronizer(context.Background(), builder)

	key := s.RegisterTimelineItem(item, placed)
	if err := src.StartAcquisition(context.Background()); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}

	if got := placed.Status(); got != timeline.StatusError {
		t.Fatalf("timeline status = %s, want error", got)
	}
	sc := placed.StatusContext()
	if sc.Stage != timeline.StageMissing {
		t.Fatalf("stage = %q, want missing", sc.Stage)
	}
	if sc.CanRetry {
		t.Fatal("missing media reported as retryable")
	}
	if sc.Message == "" {
		t.Fatal("missing media carries no message")
	}
	if placed.Handle() != nil {
		t.Fatal("errored timeline item carries a handle")
	}
	if s.Has(key) {
		t.Fatal("registration survived terminal handling")
	}
	if builder.count() != 0 {
		t.Fatal("handle built for missing media")
	}
}

func TestCancelThenRetryFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sync.RegisterTimelineItem(h.item, h.placed)
	if err := h.src.StartAcquisition(ctx); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}
	if err := h.src.UpdateProgress(30); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	if err := h.item.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := h.placed.Status(); got != timeline.StatusError {
		t.Fatalf("timeline status after cancel = %s, want error", got)
	}
	sc := h.placed.StatusContext()
	if sc.Stage != timeline.StageCancelled || !sc.CanRetry {
		t.Fatalf("status context after cancel = %+v, want retryable cancelled", sc)
	}
	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("registration survived cancellation")
	}

	// Retry: back to loading, restart the media, register again.
	if err := h.placed.TransitionTo(timeline.StatusLoading, nil, timeline.StatusContext{Stage: timeline.StageWaiting}); err != nil {
		t.Fatalf("error -> loading failed: %v", err)
	}
	if err := h.item.Retry(ctx); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	h.sync.RegisterTimelineItem(h.item, h.placed)

	if progress, ok := h.item.Progress(); !ok || progress != 0 {
		t.Fatalf("progress after retry = (%d, %v), want (0, true)", progress, ok)
	}
	if err := h.src.MarkAcquired("/tmp/clip.mp4", ""); err != nil {
		t.Fatalf("MarkAcquired failed: %v", err)
	}
	if err := h.item.CompleteDecoding(decodedMetadata()); err != nil {
		t.Fatalf("CompleteDecoding failed: %v", err)
	}

	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status after retry = %s, want ready", got)
	}
	if h.placed.Handle() == nil {
		t.Fatal("retried timeline item has no handle")
	}
	if h.manager.startedCount() != 2 {
		t.Fatalf("manager started %d times, want 2", h.manager.startedCount())
	}
}

func TestRegistrationReplacesPriorForSameKey(t *testing.T) {
	h := newHarness(t)

	first := h.sync.RegisterTimelineItem(h.item, h.placed)
	second := h.sync.RegisterTimelineItem(h.item, h.placed)
	if first != second {
		t.Fatalf("same consumer/media pair produced different keys: %v vs %v", first, second)
	}
	if got := h.sync.ActiveRegistrations(); got != 1 {
		t.Fatalf("ActiveRegistrations = %d, want 1", got)
	}

	h.driveToReady(t)
	if got := h.builder.count(); got != 1 {
		t.Fatalf("handle built %d times, want 1", got)
	}
	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status = %s, want ready", got)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	h := newHarness(t)

	key := h.sync.RegisterTimelineItem(h.item, h.placed)
	h.sync.Cleanup(key)
	h.sync.Cleanup(key) // second call is a no-op
	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("cleanup left a live registration")
	}

	// The media finishing afterwards must not touch the timeline item.
	h.driveToReady(t)
	if got := h.placed.Status(); got != timeline.StatusLoading {
		t.Fatalf("cleaned-up timeline item moved to %s", got)
	}
	if h.placed.Handle() != nil {
		t.Fatal("cleaned-up timeline item received a handle")
	}
	if h.builder.count() != 0 {
		t.Fatal("handle built for a cleaned-up registration")
	}
}

func TestTwoTimelineItemsIndependentRegistrations(t *testing.T) {
	h := newHarness(t)
	other := timeline.NewItem(h.item.ID(), timeline.WithTrack("v2"))

	keyA := h.sync.RegisterTimelineItem(h.item, h.placed)
	keyB := h.sync.RegisterTimelineItem(h.item, other)
	if keyA == keyB {
		t.Fatal("two timeline items produced the same registration key")
	}
	if got := h.sync.ActiveRegistrations(); got != 2 {
		t.Fatalf("ActiveRegistrations = %d, want 2", got)
	}

	h.sync.Cleanup(keyA)
	if h.sync.Has(keyA) {
		t.Fatal("cleaned-up registration still live")
	}
	if !h.sync.Has(keyB) {
		t.Fatal("cleanup of one key affected the other")
	}

	h.driveToReady(t)
	if got := h.placed.Status(); got != timeline.StatusLoading {
		t.Fatalf("cleaned-up item moved to %s, want loading", got)
	}
	if got := other.Status(); got != timeline.StatusReady {
		t.Fatalf("live item status = %s, want ready", got)
	}
	if h.builder.count() != 1 {
		t.Fatalf("handle built %d times, want 1", h.builder.count())
	}
}

func TestTwoTimelineItemsBothBecomeReady(t *testing.T) {
	h := newHarness(t)
	other := timeline.NewItem(h.item.ID(), timeline.WithTrack("v2"))

	h.sync.RegisterTimelineItem(h.item, h.placed)
	h.sync.RegisterTimelineItem(h.item, other)
	h.driveToReady(t)

	if h.placed.Status() != timeline.StatusReady || other.Status() != timeline.StatusReady {
		t.Fatalf("statuses = %s/%s, want ready/ready", h.placed.Status(), other.Status())
	}
	if h.builder.count() != 2 {
		t.Fatalf("handle built %d times, want 2", h.builder.count())
	}
	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("registrations survived terminal handling")
	}
}

func TestRegisterWhenMediaAlreadyReady(t *testing.T) {
	h := newHarness(t)
	h.driveToReady(t)

	key := h.sync.RegisterTimelineItem(h.item, h.placed)
	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status = %s, want ready immediately", got)
	}
	if h.placed.Handle() == nil {
		t.Fatal("ready timeline item has no handle")
	}
	if h.sync.Has(key) {
		t.Fatal("completed registration left in the registry")
	}
}

func TestRegisterAgainstFailedMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.src.StartAcquisition(ctx); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}
	if err := h.src.MarkError("network failure"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	key := h.sync.RegisterTimelineItem(h.item, h.placed)
	if got := h.placed.Status(); got != timeline.StatusError {
		t.Fatalf("timeline status = %s, want error immediately", got)
	}
	sc := h.placed.StatusContext()
	if !sc.CanRetry || sc.Message != "network failure" {
		t.Fatalf("status context = %+v, want retryable with failure message", sc)
	}
	if h.sync.Has(key) {
		t.Fatal("completed registration left in the registry")
	}
}

func TestBuilderFailureDegradesToOriginalMedia(t *testing.T) {
	h := newHarness(t)
	h.builder.err = errors.New("proxy encoder unavailable")

	h.sync.RegisterTimelineItem(h.item, h.placed)
	h.driveToReady(t)

	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status = %s, want ready despite builder failure", got)
	}
	handle := h.placed.Handle()
	if handle == nil {
		t.Fatal("ready timeline item has no handle")
	}
	if handle.Proxy {
		t.Fatal("degraded handle still claims to be a proxy")
	}
	if handle.Path != "/tmp/clip.mp4" {
		t.Fatalf("degraded handle path = %q, want original media path", handle.Path)
	}
	if handle.Width != 1920 || handle.DurationFrames != 375 {
		t.Fatalf("degraded handle lost decoded dimensions: %+v", handle)
	}
}

func TestThumbnailBestEffort(t *testing.T) {
	failed := newHarness(t, syncer.WithThumbnails(&stubThumbs{err: errors.New("ffmpeg missing")}))
	failed.sync.RegisterTimelineItem(failed.item, failed.placed)
	failed.driveToReady(t)
	if got := failed.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("thumbnail failure blocked readiness: %s", got)
	}
	if got := failed.placed.Handle().ThumbnailPath; got != "" {
		t.Fatalf("ThumbnailPath = %q, want empty after failure", got)
	}

	ok := newHarness(t, syncer.WithThumbnails(&stubThumbs{path: "/tmp/thumbs/clip.jpg"}))
	ok.sync.RegisterTimelineItem(ok.item, ok.placed)
	ok.driveToReady(t)
	if got := ok.placed.Handle().ThumbnailPath; got != "/tmp/thumbs/clip.jpg" {
		t.Fatalf("ThumbnailPath = %q, want generated path", got)
	}
}

func TestCommandRefreshedOnReady(t *testing.T) {
	h := newHarness(t)
	cmd := &stubCommand{id: "cmd-1"}

	key := h.sync.RegisterCommand(cmd, h.item, "tl-1")
	h.driveToReady(t)

	if got := cmd.updateCount(); got != 1 {
		t.Fatalf("UpdateMediaData called %d times, want 1", got)
	}
	cmd.mu.Lock()
	target := cmd.updates[0]
	cmd.mu.Unlock()
	if target != "tl-1" {
		t.Fatalf("UpdateMediaData target = %q, want tl-1", target)
	}
	if h.sync.Has(key) {
		t.Fatal("registration survived terminal handling")
	}
}

func TestDisposedCommandSkipped(t *testing.T) {
	h := newHarness(t)
	cmd := &stubCommand{id: "cmd-1", disposed: true}

	h.sync.RegisterCommand(cmd, h.item, "tl-1")
	h.driveToReady(t)

	if got := cmd.updateCount(); got != 0 {
		t.Fatalf("disposed command updated %d times, want 0", got)
	}
	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("registration survived terminal handling")
	}
}

func TestCommandIgnoredOnFailure(t *testing.T) {
	h := newHarness(t)
	cmd := &stubCommand{id: "cmd-1"}
	ctx := context.Background()

	h.sync.RegisterCommand(cmd, h.item, "tl-1")
	if err := h.src.StartAcquisition(ctx); err != nil {
		t.Fatalf("StartAcquisition failed: %v", err)
	}
	if err := h.src.MarkError("network failure"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	if got := cmd.updateCount(); got != 0 {
		t.Fatalf("failed media updated the command %d times", got)
	}
	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("registration survived terminal handling")
	}
}

func TestObserverSurvivesRegistration(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var seen []library.Status
	h.sync.Observe(h.item, func(old, new library.Status, tc library.TransitionContext) {
		if old == new {
			return
		}
		mu.Lock()
		seen = append(seen, new)
		mu.Unlock()
	})

	// Registering the timeline item must not displace the observer.
	h.sync.RegisterTimelineItem(h.item, h.placed)
	h.driveToReady(t)

	if got := h.placed.Status(); got != timeline.StatusReady {
		t.Fatalf("timeline status = %s, want ready", got)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []library.Status{library.StatusAsyncProcessing, library.StatusWebAVDecoding, library.StatusReady}
	if len(seen) != len(want) {
		t.Fatalf("observer saw %v, want %v", seen, want)
	}
	for i, status := range want {
		if seen[i] != status {
			t.Fatalf("observer saw %v, want %v", seen, want)
		}
	}
}

func TestReleaseItemTearsDownEverything(t *testing.T) {
	h := newHarness(t)
	other := timeline.NewItem(h.item.ID(), timeline.WithTrack("v2"))

	h.sync.RegisterTimelineItem(h.item, h.placed)
	h.sync.RegisterTimelineItem(h.item, other)
	h.sync.ReleaseItem(h.item.ID())

	if h.sync.ActiveRegistrations() != 0 {
		t.Fatal("ReleaseItem left live registrations")
	}

	h.driveToReady(t)
	if h.placed.Status() != timeline.StatusLoading || other.Status() != timeline.StatusLoading {
		t.Fatal("released registrations still drove timeline items")
	}
}
