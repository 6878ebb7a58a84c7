package config

import (
	"os"
	"strings"
)

// normalize expands paths, applies environment overrides, and fills gaps left
// by partial config files.
func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.LibraryDir,
		&c.Paths.StagingDir,
		&c.Paths.ProxyDir,
		&c.Paths.ThumbnailDir,
		&c.Paths.LogDir,
		&c.Paths.CatalogDBPath,
		&c.Daemon.SocketPath,
	}
	for _, field := range paths {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	roots := make([]string, 0, len(c.Ingest.MountRoots))
	for _, root := range c.Ingest.MountRoots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		roots = append(roots, expanded)
	}
	c.Ingest.MountRoots = roots

	// Secrets resolve from the environment so config files stay shareable.
	if token := strings.TrimSpace(os.Getenv("SPLICE_API_TOKEN")); token != "" {
		c.Daemon.APIToken = token
	}
	c.Daemon.APIToken = strings.TrimSpace(c.Daemon.APIToken)
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)

	c.Downloads.UserAgent = strings.TrimSpace(c.Downloads.UserAgent)
	if c.Downloads.UserAgent == "" {
		c.Downloads.UserAgent = Default().Downloads.UserAgent
	}
	if c.Downloads.MaxConcurrent <= 0 {
		c.Downloads.MaxConcurrent = Default().Downloads.MaxConcurrent
	}
	if c.Downloads.TimeoutSeconds <= 0 {
		c.Downloads.TimeoutSeconds = Default().Downloads.TimeoutSeconds
	}

	if c.Project.FrameRate <= 0 {
		c.Project.FrameRate = Default().Project.FrameRate
	}
	if c.Preview.Quality <= 0 {
		c.Preview.Quality = Default().Preview.Quality
	}
	if c.Preview.ThumbnailOffset < 0 {
		c.Preview.ThumbnailOffset = 0
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = Default().Notifications.RequestTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = Default().Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = Default().Logging.Level
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}

	return nil
}
