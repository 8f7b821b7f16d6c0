// Package config implements TOML configuration loading, validation, and
// environment overrides for extaudit. Precedence is defaults -> config file
// -> environment -> CLI flags, so one-off flag overrides always win without
// editing the config file.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Audit   AuditConfig   `toml:"audit"`
	Repair  RepairConfig  `toml:"repair"`
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig identifies the Genesys Cloud region endpoints for one org.
type APIConfig struct {
	BaseURL         string `toml:"base_url"`
	LoginURL        string `toml:"login_url"`
	IncludeInactive bool   `toml:"include_inactive"`
}

// AuditConfig tunes the fetch phase: page sizes, the full-crawl cutoff, and
// the pacing delay between targeted lookups.
type AuditConfig struct {
	UsersPageSize         int    `toml:"users_page_size"`
	ExtensionsPageSize    int    `toml:"extensions_page_size"`
	MaxFullExtensionPages int    `toml:"max_full_extension_pages"`
	LookupDelay           string `toml:"lookup_delay"`
}

// RepairConfig tunes the patch phase: pacing between patches and the update
// cap (0 means unlimited).
type RepairConfig struct {
	Sleep      string `toml:"sleep"`
	MaxUpdates int    `toml:"max_updates"`
}

// HistoryConfig locates the local run-history database.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig sets the baseline log level; --verbose and --quiet override.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LookupDelayDuration returns the parsed targeted-lookup delay. The value is
// validated at load time, so parse errors cannot occur on a loaded Config.
func (a AuditConfig) LookupDelayDuration() time.Duration {
	d, _ := time.ParseDuration(a.LookupDelay)

	return d
}

// SleepDuration returns the parsed inter-patch delay.
func (r RepairConfig) SleepDuration() time.Duration {
	d, _ := time.ParseDuration(r.Sleep)

	return d
}
