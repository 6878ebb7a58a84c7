package config

// Default returns the configuration used before any file overrides apply.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:    "~/splice/library",
			StagingDir:    "~/splice/staging",
			ProxyDir:      "~/splice/proxies",
			ThumbnailDir:  "~/splice/thumbnails",
			LogDir:        "~/splice/logs",
			CatalogDBPath: "~/splice/catalog.db",
		},
		Project: Project{
			FrameRate: 30,
		},
		Downloads: Downloads{
			MaxConcurrent:  3,
			TimeoutSeconds: 600,
			UserAgent:      "splice/0.1",
		},
		Preview: Preview{
			Enabled:         true,
			Quality:         27,
			ThumbnailOffset: 1,
		},
		Daemon: Daemon{
			APIBind:    "127.0.0.1:7791",
			SocketPath: "~/splice/spliced.sock",
		},
		Ingest: Ingest{
			Enabled:    false,
			MountRoots: []string{"/media", "/run/media"},
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			MediaReady:     true,
			MediaFailed:    true,
			Lifecycle:      true,
		},
		Logging: Logging{
			Format:        "console",
			Level:         "info",
			RetentionDays: 14,
		},
	}
}
