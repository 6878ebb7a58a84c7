// Package preflight verifies the environment before the daemon starts:
// external binaries resolve, working directories are writable, and the
// catalog database opens.
package preflight

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/deps"
)

// Result summarizes one preflight check.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes every check and returns the individual results plus an error
// when any required check failed.
func Run(ctx context.Context, cfg *config.Config) ([]Result, error) {
	var results []Result

	for _, status := range deps.CheckBinaries(deps.Defaults(cfg)) {
		result := Result{Name: status.Name, OK: status.Available, Detail: status.Detail}
		if status.Optional && !status.Available {
			result.OK = true
			result.Detail = status.Detail + " (optional)"
		}
		results = append(results, result)
	}

	results = append(results, checkDirectories(cfg)...)
	results = append(results, checkCatalog(ctx, cfg))

	var failed []string
	for _, result := range results {
		if !result.OK {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("preflight failed:\n  %s", strings.Join(failed, "\n  "))
	}
	return results, nil
}

func checkDirectories(cfg *config.Config) []Result {
	dirs := []struct {
		name string
		path string
	}{
		{"Library directory", cfg.Paths.LibraryDir},
		{"Staging directory", cfg.Paths.StagingDir},
		{"Proxy directory", cfg.Paths.ProxyDir},
		{"Thumbnail directory", cfg.Paths.ThumbnailDir},
		{"Log directory", cfg.Paths.LogDir},
	}

	results := make([]Result, 0, len(dirs))
	for _, dir := range dirs {
		result := Result{Name: dir.name, OK: true}
		if strings.TrimSpace(dir.path) == "" {
			result.OK = false
			result.Detail = "not configured"
		} else if err := unix.Access(dir.path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			result.OK = false
			result.Detail = fmt.Sprintf("%s not writable: %v", dir.path, err)
		}
		results = append(results, result)
	}
	return results
}

func checkCatalog(ctx context.Context, cfg *config.Config) Result {
	result := Result{Name: "Catalog database", OK: true}
	store, err := catalog.Open(cfg)
	if err != nil {
		result.OK = false
		result.Detail = err.Error()
		return result
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		result.OK = false
		result.Detail = err.Error()
		return result
	}
	if !health.IntegrityCheck {
		result.OK = false
		result.Detail = "integrity check failed"
	}
	return result
}
