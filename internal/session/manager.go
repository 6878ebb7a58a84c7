package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"splice/internal/acquire"
	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/preview"
	"splice/internal/services"
	"splice/internal/syncer"
	"splice/internal/thumbs"
	"splice/internal/timeline"
)

// Manager owns every live session and the shared collaborators behind them.
// All mutation of sessions, media, and placements goes through the manager so
// catalog writes and synchronizer registrations stay consistent.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *catalog.Store
	notify notifications.Service

	sync       *syncer.Synchronizer
	builder    *preview.Builder
	local      *acquire.LocalManager
	downloader *acquire.Downloader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	sessions  map[string]*Session
	keys      map[string]syncer.RegistrationKey
	sessionOf map[string]string
	observer  Observer
}

// Observer receives every applied status transition, for metrics.
type Observer interface {
	MediaTransition(status library.Status)
	TimelineTransition(status timeline.Status)
}

// New wires a manager from the configuration and shared services. The store
// remains owned by the caller; Close does not close it.
func New(cfg *config.Config, store *catalog.Store, notify notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notify == nil {
		notify = notifications.NewService(cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())

	builder := preview.NewBuilder(cfg, logger)
	m := &Manager{
		cfg:        cfg,
		logger:     logger.With(logging.String(logging.FieldComponent, "session")),
		store:      store,
		notify:     notify,
		builder:    builder,
		local:      acquire.NewLocalManager(),
		downloader: acquire.NewDownloader(cfg, logger),
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[string]*Session),
		keys:       make(map[string]syncer.RegistrationKey),
		sessionOf:  make(map[string]string),
	}
	m.sync = syncer.NewSynchronizer(ctx, builder,
		syncer.WithLogger(logger),
		syncer.WithThumbnails(thumbs.NewExtractor(cfg, logger)))
	return m
}

// Close stops background work and waits for in-flight decodes and downloads
// to settle.
func (m *Manager) Close() {
	m.cancel()
	m.downloader.Close()
	m.wg.Wait()
}

// Synchronizer exposes the shared synchronizer, mainly for diagnostics.
func (m *Manager) Synchronizer() *syncer.Synchronizer {
	return m.sync
}

// Preview exposes the shared handle builder so the daemon can wire metrics.
func (m *Manager) Preview() *preview.Builder {
	return m.builder
}

// ActiveDownloads reports the number of remote acquisitions in flight.
func (m *Manager) ActiveDownloads() int {
	return m.downloader.Active()
}

// DownloadedBytes reports the total bytes transferred by remote acquisitions.
func (m *Manager) DownloadedBytes() int64 {
	return m.downloader.BytesDownloaded()
}

// SetObserver installs the transition observer. Set before any import or
// restore happens.
func (m *Manager) SetObserver(obs Observer) {
	m.mu.Lock()
	m.observer = obs
	m.mu.Unlock()
}

func (m *Manager) observeMedia(status library.Status) {
	m.mu.Lock()
	obs := m.observer
	m.mu.Unlock()
	if obs != nil {
		obs.MediaTransition(status)
	}
}

func (m *Manager) observeTimeline(status timeline.Status) {
	m.mu.Lock()
	obs := m.observer
	m.mu.Unlock()
	if obs != nil {
		obs.TimelineTransition(status)
	}
}

// CreateSession starts a new editing session with the configured frame rate.
func (m *Manager) CreateSession(ctx context.Context, name string) (*Session, error) {
	sess := newSession(uuid.NewString(), name, m.cfg.Project.FrameRate, time.Now().UTC())

	if err := m.persistSession(ctx, sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	m.logger.Info("session created",
		logging.String(logging.FieldSessionID, sess.ID()),
		logging.String("name", name))
	return sess, nil
}

// RemoveSession tears down a session: every placement is detached, every
// media item closed, and the catalog rows removed.
func (m *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sess, err := m.Session(sessionID)
	if err != nil {
		return err
	}

	for _, placed := range sess.PlacedItems() {
		m.releasePlacement(sess, placed.ID())
	}
	for _, item := range sess.MediaItems() {
		m.sync.ReleaseItem(item.ID())
		item.Close()
		m.forgetMedia(item.ID())
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if _, err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	m.logger.Info("session removed", logging.String(logging.FieldSessionID, sessionID))
	return nil
}

// Session returns the live session with the given id.
func (m *Manager) Session(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "session", "lookup",
			fmt.Sprintf("session %s not found", id), nil)
	}
	return sess, nil
}

// Sessions returns every live session ordered by creation time.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	sortSessions(sessions)
	return sessions
}

// FindMedia locates a media item by id across all sessions.
func (m *Manager) FindMedia(mediaID string) (*Session, *library.Item, error) {
	m.mu.Lock()
	sessionID, ok := m.sessionOf[mediaID]
	sess := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || sess == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "session", "lookup",
			fmt.Sprintf("media item %s not found", mediaID), nil)
	}
	item, found := sess.Media(mediaID)
	if !found {
		return nil, nil, services.Wrap(services.ErrNotFound, "session", "lookup",
			fmt.Sprintf("media item %s not found", mediaID), nil)
	}
	return sess, item, nil
}

func (m *Manager) persistSession(ctx context.Context, sess *Session) error {
	return m.store.SaveSession(ctx, &catalog.SessionRecord{
		ID:        sess.ID(),
		Name:      sess.Name(),
		FrameRate: sess.FrameRate(),
		CreatedAt: sess.CreatedAt(),
		UpdatedAt: time.Now().UTC(),
	})
}

func (m *Manager) rememberMedia(sessionID, mediaID string) {
	m.mu.Lock()
	m.sessionOf[mediaID] = sessionID
	m.mu.Unlock()
}

func (m *Manager) forgetMedia(mediaID string) {
	m.mu.Lock()
	delete(m.sessionOf, mediaID)
	m.mu.Unlock()
}

func sortSessions(sessions []*Session) {
	sort.Slice(sessions, func(a, b int) bool {
		return sessions[a].CreatedAt().Before(sessions[b].CreatedAt())
	})
}
