package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
// Messages name the offending key and the fix.
func (c *Config) Validate() error {
	var problems []string

	requiredDirs := []struct {
		key   string
		value string
	}{
		{"paths.library_dir", c.Paths.LibraryDir},
		{"paths.staging_dir", c.Paths.StagingDir},
		{"paths.proxy_dir", c.Paths.ProxyDir},
		{"paths.thumbnail_dir", c.Paths.ThumbnailDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.catalog_db_path", c.Paths.CatalogDBPath},
	}
	for _, dir := range requiredDirs {
		if strings.TrimSpace(dir.value) == "" {
			problems = append(problems, fmt.Sprintf("%s must be set", dir.key))
		}
	}

	if c.Project.FrameRate <= 0 || c.Project.FrameRate > 240 {
		problems = append(problems, fmt.Sprintf("project.frame_rate must be between 1 and 240, got %g", c.Project.FrameRate))
	}
	if c.Downloads.MaxConcurrent > 32 {
		problems = append(problems, fmt.Sprintf("downloads.max_concurrent must be at most 32, got %d", c.Downloads.MaxConcurrent))
	}
	if c.Preview.Quality < 10 || c.Preview.Quality > 63 {
		problems = append(problems, fmt.Sprintf("preview.quality must be between 10 and 63, got %d", c.Preview.Quality))
	}
	if strings.TrimSpace(c.Daemon.APIBind) == "" {
		problems = append(problems, "daemon.api_bind must be set (host:port)")
	}
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		problems = append(problems, "daemon.socket_path must be set")
	}
	if c.Ingest.Enabled && len(c.Ingest.MountRoots) == 0 {
		problems = append(problems, "ingest.mount_roots must list at least one directory when ingest is enabled")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
