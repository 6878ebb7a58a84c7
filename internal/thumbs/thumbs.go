// Package thumbs extracts poster frames for library media using ffmpeg.
package thumbs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
)

// Extractor produces a single poster frame per media item. Frames land in
// the configured thumbnail directory, keyed by media item ID so repeat calls
// reuse the existing file.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExtractor constructs an extractor. A nil logger disables logging.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "thumbs")),
	}
}

// MakeThumbnail extracts a poster frame for the item and returns its path.
// Image sources are their own thumbnail; audio and text media have none.
func (e *Extractor) MakeThumbnail(ctx context.Context, item *library.Item) (string, error) {
	snap := item.Snapshot()
	sourcePath := snap.Source.Path
	if sourcePath == "" {
		return "", fmt.Errorf("media %s has no local path", snap.ID)
	}

	switch snap.MediaType {
	case library.TypeImage:
		return sourcePath, nil
	case library.TypeAudio, library.TypeText:
		return "", nil
	}

	target := filepath.Join(e.cfg.Paths.ThumbnailDir, snap.ID+".jpg")
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}
	if err := os.MkdirAll(e.cfg.Paths.ThumbnailDir, 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail directory: %w", err)
	}

	offset := e.offsetFor(item)
	args := []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", offset),
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", "scale=320:-2",
		"-y", target,
	}
	cmd := exec.CommandContext(ctx, e.cfg.FFmpegBinary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "thumbs", "extract",
			fmt.Sprintf("poster frame for %s", snap.ID),
			fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}

	e.logger.Debug("thumbnail extracted",
		logging.String(logging.FieldMediaID, snap.ID),
		logging.String("path", target))
	return target, nil
}

// offsetFor picks the seek offset, clamped inside the clip so short media
// still yields a frame.
func (e *Extractor) offsetFor(item *library.Item) float64 {
	offset := float64(e.cfg.Preview.ThumbnailOffset)
	if offset < 0 {
		offset = 0
	}
	if md := item.Metadata(); md != nil && md.DurationSeconds > 0 && offset >= md.DurationSeconds {
		offset = md.DurationSeconds / 2
	}
	return offset
}
