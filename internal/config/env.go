package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "EXTAUDIT_CONFIG"
	EnvBaseURL      = "EXTAUDIT_BASE_URL"
	EnvLoginURL     = "EXTAUDIT_LOGIN_URL"
	EnvAccessToken  = "EXTAUDIT_ACCESS_TOKEN"
	EnvClientID     = "EXTAUDIT_CLIENT_ID"
	EnvClientSecret = "EXTAUDIT_CLIENT_SECRET"
)

// EnvOverrides holds values derived from environment variables. These sit
// between the config file and CLI flags in the precedence chain. The
// credential values never appear in the config file; they are env-only or
// tokenfile-backed.
type EnvOverrides struct {
	ConfigPath   string
	BaseURL      string
	LoginURL     string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		BaseURL:      os.Getenv(EnvBaseURL),
		LoginURL:     os.Getenv(EnvLoginURL),
		AccessToken:  os.Getenv(EnvAccessToken),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
}

// Apply overlays env values onto a loaded Config.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.BaseURL != "" {
		cfg.API.BaseURL = e.BaseURL
	}

	if e.LoginURL != "" {
		cfg.API.LoginURL = e.LoginURL
	}
}
