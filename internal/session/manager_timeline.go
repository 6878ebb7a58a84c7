package session

import (
	"context"
	"fmt"

	"splice/internal/catalog"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/source"
	"splice/internal/timeline"
)

// Place puts a media item on the timeline. The placement starts loading and
// the synchronizer flips it to ready or error as the media settles; placing
// already-ready media resolves immediately.
func (m *Manager) Place(ctx context.Context, sessionID, mediaID, trackID string, placement timeline.Placement) (timeline.Snapshot, error) {
	sess, err := m.Session(sessionID)
	if err != nil {
		return timeline.Snapshot{}, err
	}
	item, ok := sess.Media(mediaID)
	if !ok {
		return timeline.Snapshot{}, services.Wrap(services.ErrNotFound, "session", "place",
			fmt.Sprintf("media item %s not found in session %s", mediaID, sessionID), nil)
	}

	placed := timeline.NewItem(mediaID,
		timeline.WithTrack(trackID),
		timeline.WithPlacement(placement))
	placed.SetOnChange(func(old, new timeline.Status, sc timeline.StatusContext) {
		m.persistTimeline(sess.ID(), placed)
		if old != new {
			m.observeTimeline(new)
		}
	})

	sess.addPlaced(placed)
	m.persistTimeline(sess.ID(), placed)

	key := m.sync.RegisterTimelineItem(item, placed)
	m.mu.Lock()
	m.keys[placed.ID()] = key
	m.mu.Unlock()

	// A restored pending source only starts working once somebody needs it.
	if src := item.Source(); src != nil && src.Status() == source.StatusPending {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := src.StartAcquisition(m.ctx); err != nil {
				m.logger.Warn("deferred acquisition failed",
					logging.String(logging.FieldMediaID, mediaID),
					logging.Error(err))
			}
		}()
	}

	m.logger.Info("timeline item placed",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldMediaID, mediaID),
		logging.String(logging.FieldTimelineID, placed.ID()),
		logging.String("track", trackID))
	return placed.Snapshot(), nil
}

// FindTimeline locates a placement by id across all sessions.
func (m *Manager) FindTimeline(timelineItemID string) (*Session, *timeline.Item, error) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		if placed, ok := sess.Placed(timelineItemID); ok {
			return sess, placed, nil
		}
	}
	return nil, nil, services.Wrap(services.ErrNotFound, "session", "lookup",
		fmt.Sprintf("timeline item %s not found", timelineItemID), nil)
}

// MovePlacement updates a placement's position, duration, or transform.
func (m *Manager) MovePlacement(ctx context.Context, sessionID, timelineItemID string, placement timeline.Placement) error {
	sess, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	placed, ok := sess.Placed(timelineItemID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "session", "move",
			fmt.Sprintf("timeline item %s not found", timelineItemID), nil)
	}
	placed.SetPlacement(placement)
	m.persistTimeline(sessionID, placed)
	return nil
}

// RemoveTimelineItem detaches a placement, tears down its synchronizer
// registration, and removes the catalog row. The backing media stays in the
// library.
func (m *Manager) RemoveTimelineItem(ctx context.Context, sessionID, timelineItemID string) error {
	sess, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Placed(timelineItemID); !ok {
		return services.Wrap(services.ErrNotFound, "session", "remove",
			fmt.Sprintf("timeline item %s not found", timelineItemID), nil)
	}

	m.releasePlacement(sess, timelineItemID)
	if _, err := m.store.DeleteTimelineItem(ctx, timelineItemID); err != nil {
		return err
	}

	m.logger.Info("timeline item removed",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldTimelineID, timelineItemID))
	return nil
}

// releasePlacement silences the registration and disposes the item without
// touching the catalog.
func (m *Manager) releasePlacement(sess *Session, timelineItemID string) {
	m.mu.Lock()
	key, hasKey := m.keys[timelineItemID]
	delete(m.keys, timelineItemID)
	m.mu.Unlock()
	if hasKey {
		m.sync.Cleanup(key)
	}

	if placed, ok := sess.removePlaced(timelineItemID); ok {
		placed.Detach()
	}
}

func (m *Manager) persistTimeline(sessionID string, placed *timeline.Item) {
	rec := catalog.TimelineRecordFromSnapshot(sessionID, placed.Snapshot())
	if err := m.store.UpsertTimelineItem(m.ctx, rec); err != nil {
		m.logger.Error("catalog write failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldTimelineID, placed.ID()),
			logging.Error(err))
	}
}
