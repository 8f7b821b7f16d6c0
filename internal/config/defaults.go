package config

// Default values for configuration options. These match the platform API
// page-size maximums and the pacing the provider's rate limits tolerate.
const (
	defaultBaseURL            = "https://api.mypurecloud.com"
	defaultLoginURL           = "https://login.mypurecloud.com"
	defaultUsersPageSize      = 200
	defaultExtensionsPageSize = 100
	defaultMaxFullPages       = 25
	defaultLookupDelay        = "75ms"
	defaultRepairSleep        = "250ms"
	defaultLogLevel           = "info"
)

// DefaultConfig returns a Config populated with all default values. Used as
// the starting point for TOML decoding (so unset fields retain defaults) and
// as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  defaultBaseURL,
			LoginURL: defaultLoginURL,
		},
		Audit: AuditConfig{
			UsersPageSize:         defaultUsersPageSize,
			ExtensionsPageSize:    defaultExtensionsPageSize,
			MaxFullExtensionPages: defaultMaxFullPages,
			LookupDelay:           defaultLookupDelay,
		},
		Repair: RepairConfig{
			Sleep: defaultRepairSleep,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath(),
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}
