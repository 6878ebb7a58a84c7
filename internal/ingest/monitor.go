package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/notifications"
)

// Importer receives the files discovered on attached storage. Satisfied by the
// session manager.
type Importer interface {
	ImportFile(ctx context.Context, sessionID, path string) (library.Snapshot, error)
}

// pollInterval drives the fallback sweep when the netlink socket is
// unavailable (containers, missing privileges).
const pollInterval = 30 * time.Second

// settleDelay gives the automounter time to expose the filesystem before the
// sweep starts walking mount roots.
const settleDelay = 2 * time.Second

// Monitor watches for removable block devices and imports the media files
// found under the configured mount roots into a designated session. Files are
// imported at most once per daemon lifetime.
type Monitor struct {
	cfg       *config.Config
	logger    *slog.Logger
	importer  Importer
	notify    notifications.Service
	sessionID string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	seen    map[string]struct{}
	wg      sync.WaitGroup
}

// NewMonitor builds a monitor importing into the given session. Returns nil
// when ingest is disabled or no mount roots are configured; a nil monitor is
// safe to Start and Stop.
func NewMonitor(cfg *config.Config, logger *slog.Logger, importer Importer, notify notifications.Service, sessionID string) *Monitor {
	if cfg == nil || importer == nil {
		return nil
	}
	if !cfg.Ingest.Enabled || len(cfg.Ingest.MountRoots) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notify == nil {
		notify = notifications.NewService(cfg)
	}
	return &Monitor{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "ingest")),
		importer:  importer,
		notify:    notify,
		sessionID: sessionID,
		seen:      make(map[string]struct{}),
	}
}

// Start begins listening for block-device uevents. When the netlink socket
// cannot be opened the monitor degrades to periodic polling of the mount
// roots instead of failing.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	m.quit = make(chan struct{})
	m.running = true
	quit := m.quit

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink unavailable, falling back to polling",
			logging.Error(err))
		m.wg.Add(1)
		go m.pollLoop(ctx, quit)
		return nil
	}

	m.conn = conn
	m.wg.Add(1)
	go m.monitorLoop(ctx, quit)

	m.logger.Info("ingest monitor started",
		logging.Any("mount_roots", m.cfg.Ingest.MountRoots))
	return nil
}

// Stop shuts the monitor down and waits for in-flight sweeps.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("ingest monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	defer m.wg.Done()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}
	monitorQuit := conn.Monitor(queue, errs, blockDeviceMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

func (m *Monitor) pollLoop(ctx context.Context, quit <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			m.Sweep(ctx, "poll")
		}
	}
}

// blockDeviceMatcher matches add/change uevents for block devices.
func blockDeviceMatcher() netlink.Matcher {
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := uevent.Env["DEVNAME"]
	if device == "" {
		return
	}
	m.logger.Info("block device attached",
		logging.String("device", device),
		logging.String("action", string(uevent.Action)))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(settleDelay):
		}
		m.Sweep(ctx, device)
	}()
}

// Sweep walks the configured mount roots once and imports any supported media
// file it has not imported before. It returns the number of new imports.
func (m *Monitor) Sweep(ctx context.Context, device string) int {
	if m == nil {
		return 0
	}

	imported := 0
	for _, configured := range m.cfg.Ingest.MountRoots {
		root, err := config.ExpandPath(configured)
		if err != nil {
			m.logger.Warn("bad mount root",
				logging.String("root", configured),
				logging.Error(err))
			continue
		}
		files, err := ScanRoot(root)
		if err != nil {
			m.logger.Warn("mount root scan failed",
				logging.String("root", root),
				logging.Error(err))
			continue
		}
		for _, path := range files {
			if !m.markSeen(path) {
				continue
			}
			if _, err := m.importer.ImportFile(ctx, m.sessionID, path); err != nil {
				m.logger.Warn("ingest import failed",
					logging.String("path", path),
					logging.Error(err))
				continue
			}
			imported++
		}
	}

	if imported > 0 {
		m.logger.Info("ingest sweep imported media",
			logging.String("device", device),
			logging.Int64("count", int64(imported)))
		if err := m.notify.NotifyIngestStarted(ctx, device, imported); err != nil {
			m.logger.Warn("ingest notification failed", logging.Error(err))
		}
	}
	return imported
}

// markSeen records the path and reports whether it was new.
func (m *Monitor) markSeen(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[path]; ok {
		return false
	}
	m.seen[path] = struct{}{}
	return true
}
