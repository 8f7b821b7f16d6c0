package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation bounds. Page sizes are capped at the platform API maximums.
const (
	maxUsersPageSize      = 500
	maxExtensionsPageSize = 500
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url must not be empty"))
	} else if !strings.HasPrefix(cfg.API.BaseURL, "https://") && !strings.HasPrefix(cfg.API.BaseURL, "http://") {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", cfg.API.BaseURL))
	}

	if cfg.Audit.UsersPageSize < 1 || cfg.Audit.UsersPageSize > maxUsersPageSize {
		errs = append(errs, fmt.Errorf("audit.users_page_size %d out of range [1,%d]", cfg.Audit.UsersPageSize, maxUsersPageSize))
	}

	if cfg.Audit.ExtensionsPageSize < 1 || cfg.Audit.ExtensionsPageSize > maxExtensionsPageSize {
		errs = append(errs, fmt.Errorf("audit.extensions_page_size %d out of range [1,%d]", cfg.Audit.ExtensionsPageSize, maxExtensionsPageSize))
	}

	if cfg.Audit.MaxFullExtensionPages < 1 {
		errs = append(errs, fmt.Errorf("audit.max_full_extension_pages %d must be positive", cfg.Audit.MaxFullExtensionPages))
	}

	errs = append(errs, validateDuration("audit.lookup_delay", cfg.Audit.LookupDelay)...)
	errs = append(errs, validateDuration("repair.sleep", cfg.Repair.Sleep)...)

	if cfg.Repair.MaxUpdates < 0 {
		errs = append(errs, fmt.Errorf("repair.max_updates %d must not be negative", cfg.Repair.MaxUpdates))
	}

	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}

func validateDuration(key, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s %q is not a valid duration: %w", key, value, err)}
	}

	if d < 0 {
		return []error{fmt.Errorf("%s %q must not be negative", key, value)}
	}

	return nil
}
