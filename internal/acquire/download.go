package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"splice/internal/config"
	"splice/internal/fileutil"
	"splice/internal/logging"
	"splice/internal/source"
	"splice/internal/textutil"
)

const progressInterval = 500 * time.Millisecond

// Downloader acquires remote sources over HTTP. Concurrency is bounded by
// the configured limit; each task streams into the staging directory and is
// moved into the library only after the transfer completes.
type Downloader struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
	sem    chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	bytes   atomic.Int64
}

// NewDownloader constructs a downloader from the configuration. A nil logger
// disables logging.
func NewDownloader(cfg *config.Config, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := cfg.Downloads.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	return &Downloader{
		cfg:     cfg,
		client:  &http.Client{},
		logger:  logger.With(logging.String(logging.FieldComponent, "downloader")),
		sem:     make(chan struct{}, limit),
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartAcquisition launches the download in the background and returns
// immediately. Outcomes are reported through the source callbacks.
func (d *Downloader) StartAcquisition(ctx context.Context, src *source.Source, taskID string) error {
	timeout := time.Duration(d.cfg.Downloads.TimeoutSeconds) * time.Second
	base := context.WithoutCancel(ctx)
	var taskCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(base, timeout)
	} else {
		taskCtx, cancel = context.WithCancel(base)
	}

	d.mu.Lock()
	d.cancels[taskID] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			cancel()
			d.mu.Lock()
			delete(d.cancels, taskID)
			d.mu.Unlock()
		}()
		d.run(taskCtx, src, taskID)
	}()
	return nil
}

// CancelAcquisition aborts the task identified by taskID. Unknown tasks are
// ignored.
func (d *Downloader) CancelAcquisition(taskID string) {
	d.mu.Lock()
	cancel := d.cancels[taskID]
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Active reports the number of downloads currently in flight.
func (d *Downloader) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cancels)
}

// BytesDownloaded reports the total bytes transferred since the downloader
// was created, including bytes from transfers that later failed.
func (d *Downloader) BytesDownloaded() int64 {
	return d.bytes.Load()
}

// Close waits for in-flight downloads to settle. Call after cancelling
// outstanding sources.
func (d *Downloader) Close() {
	d.wg.Wait()
}

func (d *Downloader) run(ctx context.Context, src *source.Source, taskID string) {
	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		d.finishCancelled(src, taskID, ctx.Err())
		return
	}

	rawURL := src.URL()
	logger := d.logger.With(logging.String(logging.FieldTaskID, taskID))
	logger.Info("download started", logging.String("url", rawURL))

	partial := filepath.Join(d.cfg.Paths.StagingDir, taskID+".part")
	dest, err := d.fetch(ctx, src, rawURL, partial)
	if err != nil {
		_ = os.Remove(partial)
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			d.finishCancelled(src, taskID, err)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("download timed out after %ds", d.cfg.Downloads.TimeoutSeconds)
		}
		logger.Warn("download failed", logging.Error(err))
		_ = src.MarkError(err.Error())
		return
	}

	logger.Info("download complete", logging.String("path", dest))
	if err := src.MarkAcquired(dest, rawURL); err != nil {
		// The source moved on (raced with a cancel); discard the payload.
		_ = os.Remove(dest)
	}
}

func (d *Downloader) fetch(ctx context.Context, src *source.Source, rawURL, partial string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if ua := strings.TrimSpace(d.cfg.Downloads.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(partial), 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	total := resp.ContentLength
	counter := &transferCounter{
		src:   src,
		total: total,
		start: time.Now(),
	}
	_, copyErr := io.Copy(out, io.TeeReader(resp.Body, counter))
	d.bytes.Add(counter.copied)
	closeErr := out.Close()
	if copyErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", copyErr
	}
	if closeErr != nil {
		return "", closeErr
	}

	name := FileNameForURL(rawURL, resp.Header.Get("Content-Disposition"))
	dest := fileutil.UniquePath(filepath.Join(d.cfg.Paths.LibraryDir, name))
	if err := fileutil.MoveFile(partial, dest); err != nil {
		return "", fmt.Errorf("move into library: %w", err)
	}
	return dest, nil
}

func (d *Downloader) finishCancelled(src *source.Source, taskID string, cause error) {
	d.logger.Info("download cancelled",
		logging.String(logging.FieldTaskID, taskID),
		logging.Error(cause))
	// Usually a no-op; Cancel already moved the source to cancelled.
	_ = src.MarkCancelled()
}

// transferCounter reports byte-level progress back to the source, throttled
// so fast transfers do not flood observers.
type transferCounter struct {
	src        *source.Source
	total      int64
	copied     int64
	start      time.Time
	lastReport time.Time
}

func (c *transferCounter) Write(p []byte) (int, error) {
	c.copied += int64(len(p))
	now := time.Now()
	done := c.total > 0 && c.copied >= c.total
	if !done && now.Sub(c.lastReport) < progressInterval {
		return len(p), nil
	}
	c.lastReport = now

	elapsed := now.Sub(c.start).Seconds()
	speed := ""
	var eta time.Duration
	if elapsed > 0 {
		bytesPerSec := float64(c.copied) / elapsed
		speed = formatSpeed(bytesPerSec)
		if c.total > 0 && bytesPerSec > 0 {
			remaining := float64(c.total-c.copied) / bytesPerSec
			eta = time.Duration(remaining * float64(time.Second))
		}
	}
	_ = c.src.UpdateTransfer(c.copied, c.total, speed, eta)
	return len(p), nil
}

func formatSpeed(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= 1<<20:
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1<<20))
	case bytesPerSec >= 1<<10:
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}

// FileNameForURL derives a library filename from the download URL, preferring
// a Content-Disposition filename when the server provides one.
func FileNameForURL(rawURL, disposition string) string {
	if name := dispositionFileName(disposition); name != "" {
		return name
	}
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			if name := textutil.SanitizeFileName(base); name != "" {
				return name
			}
		}
	}
	return "download.bin"
}

func dispositionFileName(disposition string) string {
	disposition = strings.TrimSpace(disposition)
	if disposition == "" {
		return ""
	}
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		value, ok := strings.CutPrefix(part, "filename=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		return textutil.SanitizeFileName(path.Base(value))
	}
	return ""
}
