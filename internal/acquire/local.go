package acquire

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"splice/internal/library"
	"splice/internal/source"
)

// LocalManager acquires user-supplied and project-referenced sources. The
// bytes are already on disk, so acquisition is validation: the path must
// exist, be a readable regular file, and carry a supported extension.
type LocalManager struct{}

// NewLocalManager returns a manager for on-disk sources.
func NewLocalManager() *LocalManager {
	return &LocalManager{}
}

// StartAcquisition validates the source path and reports the outcome
// synchronously. Vanished-path detection for project references happens in the
// source's own probe before acquisition starts; by the time the manager runs,
// a bad path is an acquisition error.
func (m *LocalManager) StartAcquisition(ctx context.Context, src *source.Source, taskID string) error {
	if err := ctx.Err(); err != nil {
		return src.MarkCancelled()
	}

	path := src.Path()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return src.MarkError(fmt.Sprintf("file not found: %s", path))
		}
		return src.MarkError(fmt.Sprintf("stat %s: %v", path, err))
	}
	if info.IsDir() {
		return src.MarkError(fmt.Sprintf("%s is a directory, not a media file", path))
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return src.MarkError(fmt.Sprintf("%s is not readable: %v", path, err))
	}
	if !library.SupportedPath(path) {
		return src.MarkError(fmt.Sprintf("unsupported media type: %s", path))
	}
	return src.MarkAcquired(path, "")
}

// CancelAcquisition is a no-op; local validation completes synchronously.
func (m *LocalManager) CancelAcquisition(taskID string) {}
