// Package daemon ties the session manager, ingest monitor, HTTP API, and
// metrics together behind a single-instance lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"splice/internal/acquire"
	"splice/internal/api"
	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/ingest"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/session"
)

// ingestSessionName is the session removable-media imports land in.
const ingestSessionName = "Ingest"

// staleStagingAge is how old a leftover partial download must be before the
// startup sweep removes it.
const staleStagingAge = 24 * time.Hour

// Daemon coordinates the background services and enforces single-instance
// execution via a lock file next to the logs.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *catalog.Store
	manager *session.Manager
	notify  notifications.Service
	hub     *logging.StreamHub
	metrics *Metrics

	ingestMon *ingest.Monitor
	apiSrv    *apiServer

	lockPath  string
	lock      *flock.Flock
	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// New constructs a daemon around an already-open store and session manager.
// The store stays owned by the caller; Close does not close it.
func New(cfg *config.Config, store *catalog.Store, manager *session.Manager, notify notifications.Service, logger *slog.Logger, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and session manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notify == nil {
		notify = notifications.NewService(cfg)
	}

	metrics := newMetrics(manager)
	manager.SetObserver(metrics)
	manager.Preview().SetTimingFunc(metrics.ObserveProxyBuild)

	lockPath := filepath.Join(cfg.Paths.LogDir, "spliced.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		manager:  manager,
		notify:   notify,
		hub:      hub,
		metrics:  metrics,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start restores persisted sessions, sweeps stale staging files, and brings up
// the ingest monitor and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spliced instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.manager.Restore(d.ctx); err != nil {
		d.teardownStart()
		return fmt.Errorf("restore sessions: %w", err)
	}
	if removed, err := acquire.SweepStaging(d.cfg.Paths.StagingDir, staleStagingAge, d.logger); err != nil {
		d.logger.Warn("staging sweep failed", logging.Error(err))
	} else if removed > 0 {
		d.logger.Info("stale staging files removed", logging.Int64("count", int64(removed)))
	}

	if d.cfg.Ingest.Enabled {
		sessionID, err := d.ensureIngestSession(d.ctx)
		if err != nil {
			d.teardownStart()
			return fmt.Errorf("prepare ingest session: %w", err)
		}
		d.ingestMon = ingest.NewMonitor(d.cfg, d.logger, d.manager, d.notify, sessionID)
		if err := d.ingestMon.Start(d.ctx); err != nil {
			d.teardownStart()
			return fmt.Errorf("start ingest monitor: %w", err)
		}
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.ingestMon.Stop()
		d.teardownStart()
		return err
	}
	if srv != nil {
		if err := srv.start(d.ctx); err != nil {
			d.ingestMon.Stop()
			d.teardownStart()
			return err
		}
	}
	d.apiSrv = srv

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("spliced started", logging.String("lock", d.lockPath))

	go func() {
		if err := d.notify.NotifyDaemonStarted(d.ctx); err != nil {
			d.logger.Warn("startup notification failed", logging.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) teardownStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts the surfaces down and releases the lock. In-flight media work is
// cancelled through the manager's context when the daemon closes.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	notifyCtx, cancelNotify := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelNotify()
	if err := d.notify.NotifyDaemonStopped(notifyCtx); err != nil {
		d.logger.Warn("shutdown notification failed", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ingestMon.Stop()
	d.ingestMon = nil
	d.apiSrv.stop()
	d.apiSrv = nil

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("spliced stopped")
}

// Close stops the daemon and the session manager.
func (d *Daemon) Close() error {
	d.Stop()
	d.manager.Close()
	return nil
}

// Running reports whether Start has completed.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Manager exposes the session manager for the IPC and HTTP surfaces.
func (d *Daemon) Manager() *session.Manager {
	return d.manager
}

// LogStream exposes the in-memory log ring, if one was wired.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// APIAddr returns the HTTP listener address once the daemon is running.
// Useful when binding to port 0.
func (d *Daemon) APIAddr() string {
	return d.apiSrv.Addr()
}

// Status assembles the daemon-wide summary served by the CLI and HTTP API.
func (d *Daemon) Status(ctx context.Context) api.StatusView {
	view := api.StatusView{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     d.startedAt,
		Sessions:      len(d.manager.Sessions()),
		IngestRunning: d.ingestMon.Running(),
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("catalog stats failed", logging.Error(err))
		return view
	}
	view.MediaByStatus = make(map[string]int, len(stats))
	for status, count := range stats {
		view.MediaByStatus[string(status)] = count
	}
	return view
}

// CatalogHealth runs the catalog diagnostics.
func (d *Daemon) CatalogHealth(ctx context.Context) (catalog.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "notifications disabled; set notifications.ntfy_topic", nil
	}
	if err := d.notify.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "test notification sent", nil
}

// ensureIngestSession finds or creates the session removable-media imports
// land in.
func (d *Daemon) ensureIngestSession(ctx context.Context) (string, error) {
	for _, sess := range d.manager.Sessions() {
		if sess.Name() == ingestSessionName {
			return sess.ID(), nil
		}
	}
	sess, err := d.manager.CreateSession(ctx, ingestSessionName)
	if err != nil {
		return "", err
	}
	return sess.ID(), nil
}
