package acquire_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"splice/internal/acquire"
	"splice/internal/source"
	"splice/internal/testsupport"
)

func waitForStatus(t *testing.T, src *source.Source, want source.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if src.Status() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("source never reached %s, stuck at %s (%s)", want, src.Status(), src.ErrorMessage())
}

func TestDownloaderAcquiresRemoteSource(t *testing.T) {
	payload := make([]byte, 256*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	dl := acquire.NewDownloader(cfg, nil)
	defer dl.Close()

	var mu sync.Mutex
	var sawProgress bool
	src := source.NewRemote(server.URL+"/media/clip.mp4",
		source.WithManager(dl),
		source.WithChangeFunc(func(old, new source.Status, event source.Event) {
			if _, ok := event.(source.ProgressEvent); ok {
				mu.Lock()
				sawProgress = true
				mu.Unlock()
			}
		}))

	if err := src.StartAcquisition(context.Background()); err != nil {
		t.Fatalf("StartAcquisition: %v", err)
	}
	waitForStatus(t, src, source.StatusAcquired)

	info, err := os.Stat(src.Path())
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if info.Size() != int64(len(payload)) {
		t.Fatalf("expected %d bytes, got %d", len(payload), info.Size())
	}
	mu.Lock()
	defer mu.Unlock()
	if !sawProgress {
		t.Fatal("expected at least one progress event")
	}
}

func TestDownloaderReportsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	dl := acquire.NewDownloader(cfg, nil)
	defer dl.Close()

	src := source.NewRemote(server.URL+"/gone.mp4", source.WithManager(dl))
	if err := src.StartAcquisition(context.Background()); err != nil {
		t.Fatalf("StartAcquisition: %v", err)
	}
	waitForStatus(t, src, source.StatusError)
}

func TestDownloaderCancelAbortsTransfer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write(make([]byte, 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := testsupport.NewConfig(t)
	dl := acquire.NewDownloader(cfg, nil)

	src := source.NewRemote(server.URL+"/big.mp4", source.WithManager(dl))
	if err := src.StartAcquisition(context.Background()); err != nil {
		t.Fatalf("StartAcquisition: %v", err)
	}
	waitForStatus(t, src, source.StatusAcquiring)

	if err := src.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := src.Status(); got != source.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
	dl.Close()
}

func TestFileNameForURL(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		disposition string
		want        string
	}{
		{"from path", "https://example.com/media/clip.mp4?sig=abc", "", "clip.mp4"},
		{"disposition wins", "https://example.com/dl", `attachment; filename="movie.mov"`, "movie.mov"},
		{"bare host", "https://example.com/", "", "download.bin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := acquire.FileNameForURL(tc.url, tc.disposition); got != tc.want {
				t.Fatalf("FileNameForURL(%q, %q) = %q, want %q", tc.url, tc.disposition, got, tc.want)
			}
		})
	}
}

func TestSweepStagingRemovesStaleParts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stale := cfg.Paths.StagingDir + "/old.part"
	fresh := cfg.Paths.StagingDir + "/new.part"
	testsupport.WriteFile(t, stale, 10)
	testsupport.WriteFile(t, fresh, 10)
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := acquire.SweepStaging(cfg.Paths.StagingDir, time.Hour, nil)
	if err != nil {
		t.Fatalf("SweepStaging: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh partial should survive: %v", err)
	}
}
