// Package config loads, validates, and normalizes the TOML configuration
// consumed by the splice daemon and CLI.
//
// Load resolves the config file (explicit path, then
// ~/.config/splice/config.toml, then ./splice.toml), decodes it over the
// defaults, expands ~ in every path field, and validates the result with
// actionable messages. CreateSample writes the embedded annotated sample.
package config
