package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/session"
	"splice/internal/source"
	"splice/internal/testsupport"
	"splice/internal/timeline"
)

func newTestManager(t *testing.T) (*session.Manager, *catalog.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m := session.New(cfg, store, nil, logging.NewNop())
	t.Cleanup(m.Close)
	return m, store, cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Text imports need no external probe binary, so they exercise the full
// import -> acquire -> decode -> ready cascade hermetically.
func importTextFile(t *testing.T, m *session.Manager, sessionID, path string) library.Snapshot {
	t.Helper()
	testsupport.WriteFile(t, path, 128)
	snap, err := m.ImportFile(context.Background(), sessionID, path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	return snap
}

func TestImportFileBecomesReady(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "first cut")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	path := filepath.Join(t.TempDir(), "notes.txt")
	snap := importTextFile(t, m, sess.ID(), path)

	waitFor(t, "media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})

	_, item, err := m.FindMedia(snap.ID)
	if err != nil {
		t.Fatalf("FindMedia: %v", err)
	}
	md := item.Metadata()
	if md == nil || md.SizeBytes != 128 {
		t.Fatalf("unexpected metadata %+v", md)
	}

	waitFor(t, "catalog row ready", func() bool {
		rec, err := store.GetMedia(ctx, snap.ID)
		return err == nil && rec.Status == library.StatusReady
	})
}

func TestImportMissingProjectReference(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "archive")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap, err := m.ImportProjectReference(ctx, sess.ID(), filepath.Join(t.TempDir(), "gone.mp4"))
	if err != nil {
		t.Fatalf("ImportProjectReference: %v", err)
	}
	if snap.Status != library.StatusMissing {
		t.Fatalf("status = %s, want missing", snap.Status)
	}
}

func TestImportUnsupportedFile(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "junk drawer")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	path := filepath.Join(t.TempDir(), "archive.zip")
	testsupport.WriteFile(t, path, 16)

	snap, err := m.ImportFile(ctx, sess.ID(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if snap.Status != library.StatusError {
		t.Fatalf("status = %s, want error", snap.Status)
	}
	if !strings.Contains(snap.ErrorMessage, "unsupported") {
		t.Fatalf("unexpected error message %q", snap.ErrorMessage)
	}
}

func TestRetryAfterErrorFailsTheSameWay(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "retry")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	path := filepath.Join(t.TempDir(), "archive.zip")
	testsupport.WriteFile(t, path, 16)
	snap, err := m.ImportFile(ctx, sess.ID(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	if err := m.RetryMedia(ctx, snap.ID); err != nil {
		t.Fatalf("RetryMedia: %v", err)
	}
	waitFor(t, "error after retry", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusError
	})
}

func TestRelinkRecoversMissingMedia(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "relink")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap, err := m.ImportProjectReference(ctx, sess.ID(), filepath.Join(t.TempDir(), "moved.txt"))
	if err != nil {
		t.Fatalf("ImportProjectReference: %v", err)
	}
	if snap.Status != library.StatusMissing {
		t.Fatalf("status = %s, want missing", snap.Status)
	}

	replacement := filepath.Join(t.TempDir(), "found.txt")
	testsupport.WriteFile(t, replacement, 64)
	if err := m.RelinkMedia(ctx, snap.ID, replacement); err != nil {
		t.Fatalf("RelinkMedia: %v", err)
	}

	waitFor(t, "relinked media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})
}

func TestCancelSettledMediaIsNoop(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "cancel")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap := importTextFile(t, m, sess.ID(), filepath.Join(t.TempDir(), "notes.txt"))
	waitFor(t, "media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})

	if err := m.CancelMedia(ctx, snap.ID); err != nil {
		t.Fatalf("CancelMedia: %v", err)
	}
	_, item, err := m.FindMedia(snap.ID)
	if err != nil {
		t.Fatalf("FindMedia: %v", err)
	}
	if item.Status() != library.StatusReady {
		t.Fatalf("cancel changed status to %s", item.Status())
	}
}

func TestPlaceTimelineItemBecomesReady(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "timeline")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	path := filepath.Join(t.TempDir(), "captions.srt")
	snap := importTextFile(t, m, sess.ID(), path)
	waitFor(t, "media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})

	tsnap, err := m.Place(ctx, sess.ID(), snap.ID, "track-1", timeline.Placement{Position: 0, Duration: 48})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	waitFor(t, "timeline item ready", func() bool {
		placed, ok := sess.Placed(tsnap.ID)
		return ok && placed.Status() == timeline.StatusReady
	})

	placed, _ := sess.Placed(tsnap.ID)
	handle := placed.Handle()
	if handle == nil {
		t.Fatal("ready timeline item carries no handle")
	}
	if handle.Path != path {
		t.Fatalf("handle path = %s, want %s", handle.Path, path)
	}
	if handle.Proxy {
		t.Fatal("text media got a proxy handle")
	}
}

// Placing media whose download is still in flight keeps both the manager's
// consumer and the timeline registration subscribed, so the full cascade
// still lands once the bytes arrive.
func TestPlaceWhileDownloadInFlight(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	release := make(chan struct{})
	releaseOnce := sync.OnceFunc(func() { close(release) })
	defer releaseOnce()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte("captions for the opening scene"))
	}))
	defer srv.Close()

	sess, err := m.CreateSession(ctx, "rough cut")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap, err := m.ImportURL(ctx, sess.ID(), srv.URL+"/notes.txt")
	if err != nil {
		t.Fatalf("ImportURL: %v", err)
	}
	waitFor(t, "download in flight", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusAsyncProcessing
	})

	tsnap, err := m.Place(ctx, sess.ID(), snap.ID, "track-1", timeline.Placement{Duration: 48})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	placed, ok := sess.Placed(tsnap.ID)
	if !ok {
		t.Fatal("placement missing after Place")
	}
	if got := placed.Status(); got != timeline.StatusLoading {
		t.Fatalf("timeline status before download completes = %s, want loading", got)
	}

	releaseOnce()

	waitFor(t, "media ready after download", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})
	waitFor(t, "timeline item ready", func() bool {
		return placed.Status() == timeline.StatusReady
	})

	handle := placed.Handle()
	if handle == nil {
		t.Fatal("ready timeline item carries no handle")
	}
	_, item, err := m.FindMedia(snap.ID)
	if err != nil {
		t.Fatalf("FindMedia: %v", err)
	}
	if handle.Path != item.Source().Path() {
		t.Fatalf("handle path = %q, want downloaded file %q", handle.Path, item.Source().Path())
	}
}

func TestPlaceUnknownMediaFails(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "empty")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, err = m.Place(ctx, sess.ID(), "no-such-media", "track-1", timeline.Placement{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRemoveMediaDetachesPlacements(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "teardown")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap := importTextFile(t, m, sess.ID(), filepath.Join(t.TempDir(), "notes.txt"))
	waitFor(t, "media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})
	if _, err := m.Place(ctx, sess.ID(), snap.ID, "track-1", timeline.Placement{Duration: 24}); err != nil {
		t.Fatalf("Place: %v", err)
	}

	if err := m.RemoveMedia(ctx, sess.ID(), snap.ID); err != nil {
		t.Fatalf("RemoveMedia: %v", err)
	}
	if items := sess.PlacedItems(); len(items) != 0 {
		t.Fatalf("expected no placements, got %d", len(items))
	}
	if items := sess.MediaItems(); len(items) != 0 {
		t.Fatalf("expected empty library, got %d items", len(items))
	}
	if _, _, err := m.FindMedia(snap.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after removal, got %v", err)
	}

	rows, err := store.ListTimelineItems(ctx, sess.ID())
	if err != nil {
		t.Fatalf("ListTimelineItems: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no timeline rows, got %d", len(rows))
	}
	media, err := store.ListMedia(ctx, sess.ID())
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(media) != 0 {
		t.Fatalf("expected no media rows, got %d", len(media))
	}
}

func TestRemoveSessionDeletesEverything(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "gone soon")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	snap := importTextFile(t, m, sess.ID(), filepath.Join(t.TempDir(), "notes.txt"))
	waitFor(t, "media ready", func() bool {
		_, item, err := m.FindMedia(snap.ID)
		return err == nil && item.Status() == library.StatusReady
	})

	if err := m.RemoveSession(ctx, sess.ID()); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	if _, err := m.Session(sess.ID()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no session rows, got %d", len(sessions))
	}
}

// A daemon restart with pending media already placed on the timeline must
// resume the acquisition and finish the cascade for the restored placement.
func TestRestorePendingMediaWithPlacement(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteFile(t, path, 96)

	now := time.Now().UTC()
	if err := store.SaveSession(ctx, &catalog.SessionRecord{
		ID: "sess-1", Name: "interrupted", FrameRate: 30,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.UpsertMedia(ctx, &catalog.MediaRecord{
		ID: "media-1", SessionID: "sess-1", Name: "notes.txt",
		MediaType: library.TypeText, Status: library.StatusPending,
		SourceKind: source.KindUserSupplied, SourceStatus: source.StatusPending,
		SourcePath: path, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertMedia: %v", err)
	}
	if err := store.UpsertTimelineItem(ctx, &catalog.TimelineRecord{
		ID: "tl-1", SessionID: "sess-1", MediaItemID: "media-1",
		TrackID: "track-1", Status: timeline.StatusLoading,
		Placement: timeline.Placement{Duration: 48},
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertTimelineItem: %v", err)
	}

	m := session.New(cfg, store, nil, logging.NewNop())
	t.Cleanup(m.Close)
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	sess, err := m.Session("sess-1")
	if err != nil {
		t.Fatalf("restored session missing: %v", err)
	}
	waitFor(t, "restored media ready", func() bool {
		_, item, err := m.FindMedia("media-1")
		return err == nil && item.Status() == library.StatusReady
	})
	waitFor(t, "restored placement ready", func() bool {
		placed, ok := sess.Placed("tl-1")
		return ok && placed.Status() == timeline.StatusReady
	})
	placed, _ := sess.Placed("tl-1")
	if placed.Handle() == nil || placed.Handle().Path != path {
		t.Fatalf("restored handle %+v", placed.Handle())
	}
}

func TestRestoreRebuildsSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	first := session.New(cfg, store, nil, logging.NewNop())
	sess, err := first.CreateSession(ctx, "survivor")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	path := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteFile(t, path, 128)
	snap, err := first.ImportFile(ctx, sess.ID(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	waitFor(t, "media ready before restart", func() bool {
		rec, err := store.GetMedia(ctx, snap.ID)
		return err == nil && rec.Status == library.StatusReady
	})
	tsnap, err := first.Place(ctx, sess.ID(), snap.ID, "track-1", timeline.Placement{Position: 96, Duration: 48})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	first.Close()

	second := session.New(cfg, store, nil, logging.NewNop())
	t.Cleanup(second.Close)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored, err := second.Session(sess.ID())
	if err != nil {
		t.Fatalf("restored session missing: %v", err)
	}
	if restored.Name() != "survivor" {
		t.Fatalf("restored name = %q", restored.Name())
	}

	_, item, err := second.FindMedia(snap.ID)
	if err != nil {
		t.Fatalf("restored media missing: %v", err)
	}
	if item.Status() != library.StatusReady {
		t.Fatalf("restored media status = %s, want ready", item.Status())
	}
	if md := item.Metadata(); md == nil || md.SizeBytes != 128 {
		t.Fatalf("restored metadata %+v", md)
	}

	waitFor(t, "restored timeline item ready", func() bool {
		placed, ok := restored.Placed(tsnap.ID)
		return ok && placed.Status() == timeline.StatusReady
	})
	placed, _ := restored.Placed(tsnap.ID)
	if got := placed.Placement(); got.Position != 96 || got.Duration != 48 {
		t.Fatalf("restored placement %+v", got)
	}
	if placed.Handle() == nil || placed.Handle().Path != path {
		t.Fatalf("restored handle %+v", placed.Handle())
	}
}
