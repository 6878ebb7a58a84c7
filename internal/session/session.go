package session

import (
	"sort"
	"sync"
	"time"

	"splice/internal/library"
	"splice/internal/timeline"
)

// Session is one editing project: a media library plus timeline placements.
type Session struct {
	id        string
	name      string
	frameRate float64
	createdAt time.Time

	media *library.Index

	mu     sync.Mutex
	placed map[string]*timeline.Item
}

func newSession(id, name string, frameRate float64, createdAt time.Time) *Session {
	return &Session{
		id:        id,
		name:      name,
		frameRate: frameRate,
		createdAt: createdAt,
		media:     library.NewIndex(),
		placed:    make(map[string]*timeline.Item),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Name returns the session's display name.
func (s *Session) Name() string { return s.name }

// FrameRate returns the session's timeline frame rate.
func (s *Session) FrameRate() float64 { return s.frameRate }

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Media returns the library item with the given id.
func (s *Session) Media(id string) (*library.Item, bool) {
	return s.media.Get(id)
}

// MediaItems returns the session's library items ordered by creation time.
func (s *Session) MediaItems() []*library.Item {
	return s.media.Items()
}

// Placed returns the timeline item with the given id.
func (s *Session) Placed(id string) (*timeline.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.placed[id]
	return item, ok
}

// PlacedItems returns the session's timeline items ordered by position.
func (s *Session) PlacedItems() []*timeline.Item {
	s.mu.Lock()
	items := make([]*timeline.Item, 0, len(s.placed))
	for _, item := range s.placed {
		items = append(items, item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(a, b int) bool {
		pa, pb := items[a].Placement(), items[b].Placement()
		if pa.Position != pb.Position {
			return pa.Position < pb.Position
		}
		return items[a].CreatedAt().Before(items[b].CreatedAt())
	})
	return items
}

// placedForMedia returns the timeline items backed by the given media item.
func (s *Session) placedForMedia(mediaID string) []*timeline.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*timeline.Item
	for _, item := range s.placed {
		if item.MediaItemID() == mediaID {
			items = append(items, item)
		}
	}
	return items
}

func (s *Session) addPlaced(item *timeline.Item) {
	s.mu.Lock()
	s.placed[item.ID()] = item
	s.mu.Unlock()
}

func (s *Session) removePlaced(id string) (*timeline.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.placed[id]
	if ok {
		delete(s.placed, id)
	}
	return item, ok
}
