package session

import (
	"context"

	"splice/internal/catalog"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/source"
	"splice/internal/timeline"
)

// Restore rebuilds the in-memory sessions from the catalog after a restart.
// Media that was decoding when the daemon died is reset to pending and its
// acquisition re-kicked; corrupt rows are logged and skipped rather than
// blocking startup.
func (m *Manager) Restore(ctx context.Context) error {
	reset, err := m.store.ResetInFlight(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("in-flight media reset to pending", logging.Int64("count", reset))
	}

	records, err := m.store.ListSessions(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		sess := newSession(rec.ID, rec.Name, rec.FrameRate, rec.CreatedAt)
		if err := m.restoreMedia(ctx, sess); err != nil {
			return err
		}
		if err := m.restoreTimeline(ctx, sess); err != nil {
			return err
		}
		m.mu.Lock()
		m.sessions[sess.ID()] = sess
		m.mu.Unlock()

		m.logger.Info("session restored",
			logging.String(logging.FieldSessionID, sess.ID()),
			logging.String("name", sess.Name()),
			logging.Int64("media_items", int64(sess.media.Len())))
	}
	return nil
}

func (m *Manager) restoreMedia(ctx context.Context, sess *Session) error {
	records, err := m.store.ListMedia(ctx, sess.ID())
	if err != nil {
		return err
	}

	for _, rec := range records {
		item, err := m.restoreItem(rec)
		if err != nil {
			m.logger.Error("media restore skipped",
				logging.String(logging.FieldSessionID, sess.ID()),
				logging.String(logging.FieldMediaID, rec.ID),
				logging.Error(err))
			continue
		}
		m.watchItem(sess, item)
		if err := sess.media.Add(item); err != nil {
			m.logger.Error("media restore skipped",
				logging.String(logging.FieldMediaID, rec.ID),
				logging.Error(err))
			continue
		}
		m.rememberMedia(sess.ID(), item.ID())
		m.kickRestored(item)
	}
	return nil
}

func (m *Manager) restoreItem(rec *catalog.MediaRecord) (*library.Item, error) {
	src, err := source.Restore(rec.SourceKind, rec.SourceStatus, rec.SourcePath, rec.SourceURL,
		source.WithManager(m.managerFor(rec.SourceKind)))
	if err != nil {
		return nil, err
	}
	return library.RestoreItem(rec.ID, rec.Name, rec.MediaType, rec.Status, rec.Metadata, src,
		library.WithLogger(m.logger))
}

func (m *Manager) managerFor(kind source.Kind) source.Manager {
	if kind == source.KindRemote {
		return m.downloader
	}
	return m.local
}

// kickRestored resumes work that a restart interrupted. Pending sources start
// acquiring again; items whose bytes already landed go straight back to
// decoding.
func (m *Manager) kickRestored(item *library.Item) {
	if item.Status() != library.StatusPending {
		return
	}
	src := item.Source()
	if src == nil {
		return
	}
	switch src.Status() {
	case source.StatusPending:
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := src.StartAcquisition(m.ctx); err != nil {
				m.logger.Warn("restored acquisition failed",
					logging.String(logging.FieldMediaID, item.ID()),
					logging.Error(err))
			}
		}()
	case source.StatusAcquired:
		m.scheduleRedecode(item)
	}
}

func (m *Manager) restoreTimeline(ctx context.Context, sess *Session) error {
	records, err := m.store.ListTimelineItems(ctx, sess.ID())
	if err != nil {
		return err
	}

	for _, rec := range records {
		item, ok := sess.Media(rec.MediaItemID)
		if !ok {
			m.logger.Error("timeline restore skipped",
				logging.String(logging.FieldTimelineID, rec.ID),
				logging.String(logging.FieldMediaID, rec.MediaItemID))
			continue
		}

		placed := timeline.NewItem(rec.MediaItemID,
			timeline.WithID(rec.ID),
			timeline.WithTrack(rec.TrackID),
			timeline.WithPlacement(rec.Placement))
		placed.SetOnChange(func(old, new timeline.Status, sc timeline.StatusContext) {
			m.persistTimeline(sess.ID(), placed)
			if old != new {
				m.observeTimeline(new)
			}
		})

		sess.addPlaced(placed)
		key := m.sync.RegisterTimelineItem(item, placed)
		m.mu.Lock()
		m.keys[placed.ID()] = key
		m.mu.Unlock()
	}
	return nil
}
