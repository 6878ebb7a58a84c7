package acquire

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"splice/internal/logging"
)

// SweepStaging removes partial downloads older than maxAge from the staging
// directory. Crashed or interrupted transfers leave .part files behind;
// anything still fresh may belong to a live task and is left alone.
func SweepStaging(dir string, maxAge time.Duration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		target := filepath.Join(dir, entry.Name())
		if err := os.Remove(target); err != nil {
			logger.Warn("failed to remove stale partial", logging.String("path", target), logging.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
