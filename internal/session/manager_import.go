package session

import (
	"context"
	"path/filepath"

	"splice/internal/acquire"
	"splice/internal/catalog"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/source"
	"splice/internal/textutil"
)

// ImportFile adds a file already on disk to the session and starts its
// validation immediately.
func (m *Manager) ImportFile(ctx context.Context, sessionID, path string) (library.Snapshot, error) {
	src := source.NewUserSupplied(path, source.WithManager(m.local))
	return m.importSource(ctx, sessionID, filepath.Base(path), src)
}

// ImportProjectReference adds a path recorded in a saved project. The path is
// probed before acquisition and may turn out to be missing.
func (m *Manager) ImportProjectReference(ctx context.Context, sessionID, path string) (library.Snapshot, error) {
	src := source.NewProjectReferenced(path, source.WithManager(m.local))
	return m.importSource(ctx, sessionID, filepath.Base(path), src)
}

// ImportURL adds a remote file to the session and starts downloading it.
func (m *Manager) ImportURL(ctx context.Context, sessionID, rawURL string) (library.Snapshot, error) {
	src := source.NewRemote(rawURL, source.WithManager(m.downloader))
	return m.importSource(ctx, sessionID, acquire.FileNameForURL(rawURL, ""), src)
}

func (m *Manager) importSource(ctx context.Context, sessionID, name string, src *source.Source) (library.Snapshot, error) {
	sess, err := m.Session(sessionID)
	if err != nil {
		return library.Snapshot{}, err
	}

	name = textutil.SanitizeFileName(name)
	if name == "" {
		return library.Snapshot{}, services.Wrap(services.ErrValidation, "session", "import",
			"media needs a non-empty name", nil)
	}

	item := library.NewItem(name, src, library.WithLogger(m.logger))
	m.watchItem(sess, item)

	if err := sess.media.Add(item); err != nil {
		return library.Snapshot{}, err
	}
	m.rememberMedia(sess.ID(), item.ID())
	m.persistMedia(sess.ID(), item)

	m.logger.Info("media imported",
		logging.String(logging.FieldSessionID, sess.ID()),
		logging.String(logging.FieldMediaID, item.ID()),
		logging.String("name", name),
		logging.String("kind", string(src.Kind())))

	if err := src.StartAcquisition(ctx); err != nil {
		return item.Snapshot(), err
	}
	return item.Snapshot(), nil
}

// watchItem subscribes the consumer that drives persistence, notifications,
// and decode scheduling. The subscription goes through the synchronizer's
// shared watch so timeline registrations on the same item never displace it.
// The callback runs under the item's transition lock, so anything that
// transitions the item again must leave through a goroutine.
func (m *Manager) watchItem(sess *Session, item *library.Item) {
	m.sync.Observe(item, func(old, new library.Status, tc library.TransitionContext) {
		if old == new {
			return
		}
		switch new {
		case library.StatusWebAVDecoding:
			m.scheduleDecode(item)
		case library.StatusPending:
			// A decode-failure retry lands here with the bytes still local;
			// move it back into decoding once the callback unwinds.
			if item.Source() != nil && item.Source().Status() == source.StatusAcquired {
				m.scheduleRedecode(item)
			}
		case library.StatusReady:
			m.notifyAsync(func(ctx context.Context) error {
				return m.notify.NotifyMediaReady(ctx, item.Name())
			})
		case library.StatusError:
			m.notifyAsync(func(ctx context.Context) error {
				return m.notify.NotifyMediaFailed(ctx, item.Name(), item.ErrorMessage())
			})
		case library.StatusMissing:
			m.notifyAsync(func(ctx context.Context) error {
				return m.notify.NotifyMediaMissing(ctx, item.Name(), item.Source().Path())
			})
		}
		m.persistMedia(sess.ID(), item)
		m.observeMedia(new)
	})
}

// persistMedia writes the item's current snapshot through to the catalog.
// Persistence failures are logged, never propagated into the state machines.
func (m *Manager) persistMedia(sessionID string, item *library.Item) {
	rec := catalog.MediaRecordFromSnapshot(sessionID, item.Snapshot())
	if err := m.store.UpsertMedia(m.ctx, rec); err != nil {
		m.logger.Error("catalog write failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldMediaID, item.ID()),
			logging.Error(err))
	}
}

func (m *Manager) notifyAsync(send func(context.Context) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := send(m.ctx); err != nil {
			m.logger.Warn("notification failed", logging.Error(err))
		}
	}()
}

// scheduleRedecode moves a retried item with local bytes back into decoding.
func (m *Manager) scheduleRedecode(item *library.Item) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := item.TransitionTo(library.StatusWebAVDecoding, library.DownloadCompletedContext{
			Path: item.Source().Path(),
		})
		if err != nil {
			m.logger.Warn("redecode scheduling failed",
				logging.String(logging.FieldMediaID, item.ID()),
				logging.Error(err))
		}
	}()
}
