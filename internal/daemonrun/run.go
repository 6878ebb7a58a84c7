// Package daemonrun hosts the daemon's foreground run loop, shared by the
// spliced binary and the CLI's run command.
package daemonrun

import (
	"context"
	"log/slog"
	"path/filepath"

	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/ipc"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/preflight"
	"splice/internal/session"
)

// Run brings the daemon up and blocks until ctx is cancelled. Preflight
// failures and startup errors are returned; a clean shutdown returns nil.
func Run(ctx context.Context, cfg *config.Config) error {
	base, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	hub := logging.NewStreamHub(1024)
	logger := slog.New(logging.NewStreamHandler(base.Handler(), hub))

	if results, err := preflight.Run(ctx, cfg); err != nil {
		for _, result := range results {
			if !result.OK {
				logger.Error("preflight check failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail))
			}
		}
		return err
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	notify := notifications.NewService(cfg)
	manager := session.New(cfg, store, notify, logger)

	d, err := daemon.New(cfg, store, manager, notify, logger, hub)
	if err != nil {
		return err
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, SocketPath(cfg), d, logger)
	if err != nil {
		return err
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		return err
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
	})

	<-ctx.Done()
	logger.Info("daemon shutting down")
	return nil
}

// SocketPath resolves the IPC socket location, falling back next to the logs.
func SocketPath(cfg *config.Config) string {
	if path := cfg.Daemon.SocketPath; path != "" {
		return path
	}
	return filepath.Join(cfg.Paths.LogDir, "spliced.sock")
}
