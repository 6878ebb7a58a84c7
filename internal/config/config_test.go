package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, got exists for %s", path)
	}
	if cfg.Project.FrameRate != 30 {
		t.Fatalf("expected default frame rate, got %g", cfg.Project.FrameRate)
	}
	if cfg.Downloads.MaxConcurrent != 3 {
		t.Fatalf("expected default download concurrency, got %d", cfg.Downloads.MaxConcurrent)
	}
}

func TestLoadOverridesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
library_dir = "` + dir + `/library"
staging_dir = "` + dir + `/staging"
proxy_dir = "` + dir + `/proxies"
thumbnail_dir = "` + dir + `/thumbs"
log_dir = "` + dir + `/logs"
catalog_db_path = "` + dir + `/catalog.db"

[project]
frame_rate = 24

[downloads]
max_concurrent = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Project.FrameRate != 24 {
		t.Fatalf("expected frame rate override, got %g", cfg.Project.FrameRate)
	}
	if cfg.Downloads.MaxConcurrent != 5 {
		t.Fatalf("expected download override, got %d", cfg.Downloads.MaxConcurrent)
	}
	if !filepath.IsAbs(cfg.Paths.LibraryDir) {
		t.Fatalf("expected absolute library dir, got %s", cfg.Paths.LibraryDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Project.FrameRate = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "project.frame_rate") {
		t.Fatalf("expected frame rate complaint, got %q", msg)
	}
	if !strings.Contains(msg, "logging.format") {
		t.Fatalf("expected logging format complaint, got %q", msg)
	}
}

func TestAPITokenFromEnvironment(t *testing.T) {
	t.Setenv("SPLICE_API_TOKEN", "secret-token")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.APIToken != "secret-token" {
		t.Fatalf("expected env token, got %q", cfg.Daemon.APIToken)
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[downloads]") {
		t.Fatal("sample config missing downloads section")
	}
}
