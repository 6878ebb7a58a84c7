// Package preview builds playback handles for ready media. Video sources get
// a proxy encode for smooth scrubbing; other media plays from the original
// file.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	draptolib "github.com/five82/drapto"

	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/timeline"
)

// Builder implements the synchronizer's handle construction. Proxies are
// cached per media item so repeated placements reuse the first encode.
type Builder struct {
	cfg    *config.Config
	logger *slog.Logger

	mu      sync.Mutex
	proxies map[string]string
	timing  func(seconds float64)
}

// SetTimingFunc installs a callback observing the wall time of each completed
// proxy encode. Used for metrics; set before handles start building.
func (b *Builder) SetTimingFunc(fn func(seconds float64)) {
	b.mu.Lock()
	b.timing = fn
	b.mu.Unlock()
}

// NewBuilder constructs a Builder. A nil logger disables logging.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		cfg:     cfg,
		logger:  logger.With(logging.String(logging.FieldComponent, "preview")),
		proxies: make(map[string]string),
	}
}

// BuildHandle assembles the runtime handle for a ready media item. Proxy
// encoding is best-effort: when it fails the handle simply carries no proxy
// and playback falls back to the original path.
func (b *Builder) BuildHandle(ctx context.Context, item *library.Item, placed *timeline.Item) (*timeline.Handle, error) {
	snap := item.Snapshot()
	if snap.Source.Path == "" {
		return nil, fmt.Errorf("media %s has no local path", snap.ID)
	}

	handle := &timeline.Handle{
		MediaItemID: snap.ID,
		Path:        snap.Source.Path,
	}
	if md := snap.Metadata; md != nil {
		handle.Width = md.Width
		handle.Height = md.Height
		handle.DurationFrames = md.DurationFrames
	}

	if !b.cfg.Preview.Enabled || snap.MediaType != library.TypeVideo {
		return handle, nil
	}

	proxy, err := b.proxyFor(ctx, snap.ID, snap.Source.Path)
	if err != nil {
		b.logger.Warn("proxy encode failed, playback uses original",
			logging.String(logging.FieldMediaID, snap.ID),
			logging.Error(err))
		return handle, nil
	}
	handle.Path = proxy
	handle.Proxy = true
	return handle, nil
}

// proxyFor returns the cached proxy for the media item, encoding one when
// necessary.
func (b *Builder) proxyFor(ctx context.Context, mediaID, sourcePath string) (string, error) {
	b.mu.Lock()
	if proxy, ok := b.proxies[mediaID]; ok {
		b.mu.Unlock()
		return proxy, nil
	}
	b.mu.Unlock()

	outputDir := filepath.Join(b.cfg.Paths.ProxyDir, mediaID)
	if existing := existingProxy(outputDir, sourcePath); existing != "" {
		b.remember(mediaID, existing)
		return existing, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create proxy directory: %w", err)
	}

	start := time.Now()
	proxy, err := b.encode(ctx, mediaID, sourcePath, outputDir)
	if err != nil {
		b.logger.Warn("drapto encode failed, falling back to ffmpeg",
			logging.String(logging.FieldMediaID, mediaID),
			logging.Error(err))
		proxy, err = b.encodeFallback(ctx, sourcePath, outputDir)
		if err != nil {
			return "", err
		}
	}

	b.remember(mediaID, proxy)
	b.observeTiming(time.Since(start).Seconds())
	b.logger.Info("proxy ready",
		logging.String(logging.FieldMediaID, mediaID),
		logging.String("path", proxy))
	return proxy, nil
}

func (b *Builder) observeTiming(seconds float64) {
	b.mu.Lock()
	fn := b.timing
	b.mu.Unlock()
	if fn != nil {
		fn(seconds)
	}
}

func (b *Builder) remember(mediaID, proxy string) {
	b.mu.Lock()
	b.proxies[mediaID] = proxy
	b.mu.Unlock()
}

// Invalidate drops the cached proxy for a media item, forcing a re-encode on
// the next handle build. Called when the backing file is relinked.
func (b *Builder) Invalidate(mediaID string) {
	b.mu.Lock()
	delete(b.proxies, mediaID)
	b.mu.Unlock()
	_ = os.RemoveAll(filepath.Join(b.cfg.Paths.ProxyDir, mediaID))
}

func (b *Builder) encode(ctx context.Context, mediaID, sourcePath, outputDir string) (string, error) {
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", err
	}
	reporter := &encodeReporter{
		logger: b.logger.With(logging.String(logging.FieldMediaID, mediaID)),
	}
	if _, err := encoder.EncodeWithReporter(ctx, sourcePath, outputDir, reporter); err != nil {
		return "", err
	}
	return filepath.Join(outputDir, proxyStem(sourcePath)+".mkv"), nil
}

// encodeFallback produces an H.264 proxy with ffmpeg, capped at 720p with the
// configured CRF quality.
func (b *Builder) encodeFallback(ctx context.Context, sourcePath, outputDir string) (string, error) {
	target := filepath.Join(outputDir, proxyStem(sourcePath)+".mp4")
	args := []string{
		"-v", "error",
		"-i", sourcePath,
		"-vf", "scale=-2:'min(720,ih)'",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", fmt.Sprintf("%d", b.cfg.Preview.Quality),
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-y", target,
	}
	cmd := exec.CommandContext(ctx, b.cfg.FFmpegBinary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrExternalTool, "preview", "encode",
			fmt.Sprintf("proxy for %s", sourcePath),
			fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}
	return target, nil
}

func existingProxy(outputDir, sourcePath string) string {
	stem := proxyStem(sourcePath)
	for _, ext := range []string{".mkv", ".mp4"} {
		candidate := filepath.Join(outputDir, stem+ext)
		if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
			return candidate
		}
	}
	return ""
}

func proxyStem(sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem
}
