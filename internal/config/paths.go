package config

import (
	"os"
	"path/filepath"
)

// appDirName is the per-user directory holding config, token, and history.
const appDirName = "extaudit"

// appDir returns the extaudit config directory, falling back to the current
// directory when the user config dir cannot be determined.
func appDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}

	return filepath.Join(base, appDirName)
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(appDir(), "config.toml")
}

// DefaultTokenPath returns the default token file location.
func DefaultTokenPath() string {
	return filepath.Join(appDir(), "token.json")
}

// DefaultHistoryPath returns the default run-history database location.
func DefaultHistoryPath() string {
	return filepath.Join(appDir(), "history.db")
}
