package session

import (
	"context"
	"fmt"
	"strings"

	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/source"
)

// MediaSnapshots returns the session's media items as snapshots.
func (m *Manager) MediaSnapshots(sessionID string) ([]library.Snapshot, error) {
	sess, err := m.Session(sessionID)
	if err != nil {
		return nil, err
	}
	items := sess.MediaItems()
	snaps := make([]library.Snapshot, 0, len(items))
	for _, item := range items {
		snaps = append(snaps, item.Snapshot())
	}
	return snaps, nil
}

// CancelMedia aborts an in-flight acquisition. Cancelling settled media is a
// no-op.
func (m *Manager) CancelMedia(ctx context.Context, mediaID string) error {
	_, item, err := m.FindMedia(mediaID)
	if err != nil {
		return err
	}
	return item.Cancel()
}

// RetryMedia recovers a failed, cancelled, or missing media item and re-runs
// its acquisition or decode.
func (m *Manager) RetryMedia(ctx context.Context, mediaID string) error {
	_, item, err := m.FindMedia(mediaID)
	if err != nil {
		return err
	}
	if item.Status() == library.StatusMissing {
		src := item.Source()
		if src == nil {
			return services.Wrap(services.ErrValidation, "session", "retry",
				"missing media has no source to retry", nil)
		}
		return src.Retry(ctx)
	}
	return item.Retry(ctx)
}

// RelinkMedia points a missing media item at a new path and re-runs
// acquisition. Any cached proxy for the old file is dropped.
func (m *Manager) RelinkMedia(ctx context.Context, mediaID, newPath string) error {
	_, item, err := m.FindMedia(mediaID)
	if err != nil {
		return err
	}
	newPath = strings.TrimSpace(newPath)
	if newPath == "" {
		return services.Wrap(services.ErrValidation, "session", "relink",
			"relink needs a path", nil)
	}
	src := item.Source()
	if src == nil {
		return services.Wrap(services.ErrValidation, "session", "relink",
			"media has no source to relink", nil)
	}

	src.Relink(newPath)
	m.builder.Invalidate(mediaID)

	if source.IsRetryable(src.Status()) {
		return src.Retry(ctx)
	}
	return nil
}

// RemoveMedia takes an item out of the library. Timeline placements backed by
// it are removed as well; the catalog cascade cleans up their rows.
func (m *Manager) RemoveMedia(ctx context.Context, sessionID, mediaID string) error {
	sess, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	item, ok := sess.Media(mediaID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "session", "remove",
			fmt.Sprintf("media item %s not found in session %s", mediaID, sessionID), nil)
	}

	for _, placed := range sess.placedForMedia(mediaID) {
		m.releasePlacement(sess, placed.ID())
	}
	m.sync.ReleaseItem(mediaID)

	sess.media.Remove(mediaID)
	m.forgetMedia(mediaID)
	item.Close()

	if _, err := m.store.DeleteMedia(ctx, mediaID); err != nil {
		return err
	}
	m.logger.Info("media removed",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldMediaID, mediaID))
	return nil
}
