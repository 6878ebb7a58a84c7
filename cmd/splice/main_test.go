package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/ipc"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/session"
	"splice/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	hub        *logging.StreamHub
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := logging.NewStreamHub(64)
	mgr := session.New(cfg, store, nil, logging.NewNop())
	d, err := daemon.New(cfg, store, mgr, nil, logging.NewNop(), hub)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("new ipc server: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		hub:        hub,
		socketPath: cfg.Daemon.SocketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--socket", env.socketPath, "--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLISessionMediaTimelineFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "session", "create", "demo")
	if err != nil {
		t.Fatalf("session create: %v", err)
	}
	if !strings.Contains(out, "Created session demo") {
		t.Fatalf("unexpected create output: %q", out)
	}

	mgr := env.daemon.Manager()
	sessions := mgr.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	sessionID := sessions[0].ID()

	mediaPath := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteFile(t, mediaPath, 64)
	out, err = runCLI(t, env, "media", "import", sessionID, mediaPath)
	if err != nil {
		t.Fatalf("media import: %v", err)
	}
	if !strings.Contains(out, "Imported notes.txt") {
		t.Fatalf("unexpected import output: %q", out)
	}

	deadline := time.Now().Add(5 * time.Second)
	var mediaID string
	for {
		snaps, err := mgr.MediaSnapshots(sessionID)
		if err != nil {
			t.Fatalf("media snapshots: %v", err)
		}
		if len(snaps) == 1 && snaps[0].Status == library.StatusReady {
			mediaID = snaps[0].ID
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("media never became ready: %+v", snaps)
		}
		time.Sleep(20 * time.Millisecond)
	}

	out, err = runCLI(t, env, "media", "list", sessionID)
	if err != nil {
		t.Fatalf("media list: %v", err)
	}
	if !strings.Contains(out, "ready") || !strings.Contains(out, "notes.txt") {
		t.Fatalf("unexpected media list output: %q", out)
	}

	out, err = runCLI(t, env, "timeline", "place", sessionID, mediaID, "track-1", "--duration", "48")
	if err != nil {
		t.Fatalf("timeline place: %v", err)
	}
	if !strings.Contains(out, "track-1") {
		t.Fatalf("unexpected place output: %q", out)
	}

	sess, err := mgr.Session(sessionID)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	deadline = time.Now().Add(5 * time.Second)
	for {
		items := sess.PlacedItems()
		if len(items) == 1 && items[0].Snapshot().Status == "ready" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeline item never became ready")
		}
		time.Sleep(20 * time.Millisecond)
	}

	out, err = runCLI(t, env, "timeline", "list", sessionID)
	if err != nil {
		t.Fatalf("timeline list: %v", err)
	}
	if !strings.Contains(out, "track-1") || !strings.Contains(out, "ready") {
		t.Fatalf("unexpected timeline list output: %q", out)
	}

	out, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Running") || !strings.Contains(out, "ready") {
		t.Fatalf("unexpected status output: %q", out)
	}

	out, err = runCLI(t, env, "session", "remove", sessionID)
	if err != nil {
		t.Fatalf("session remove: %v", err)
	}
	if !strings.Contains(out, "Session removed") {
		t.Fatalf("unexpected remove output: %q", out)
	}
	if remaining := mgr.Sessions(); len(remaining) != 0 {
		t.Fatalf("expected no sessions after removal, got %d", len(remaining))
	}
}

func TestCLILogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No log entries available") {
		t.Fatalf("unexpected empty logs output: %q", out)
	}

	env.hub.Publish(logging.LogEvent{Level: "INFO", Message: "daemon heartbeat", Component: "daemon"})

	out, err = runCLI(t, env, "logs")
	if err != nil {
		t.Fatalf("logs after publish: %v", err)
	}
	if !strings.Contains(out, "daemon heartbeat") || !strings.Contains(out, "[daemon]") {
		t.Fatalf("unexpected logs output: %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	out, err = runCLI(t, env, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, env.configPath) {
		t.Fatalf("config path output %q missing %q", out, env.configPath)
	}

	out, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "staging_dir") || !strings.Contains(out, env.cfg.Paths.StagingDir) {
		t.Fatalf("unexpected show output: %q", out)
	}
}

func TestCLIStopWithoutDaemonSocket(t *testing.T) {
	env := setupCLITestEnv(t)
	env.socketPath = filepath.Join(t.TempDir(), "missing.sock")

	out, err := runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Daemon is not running") {
		t.Fatalf("unexpected stop output: %q", out)
	}
}
