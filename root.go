// Command extaudit audits and repairs the mismatch between the extension
// numbers Genesys Cloud users declare on their profiles and the platform's
// telephony extension registry.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gcadmin/extaudit/internal/config"
	"github.com/gcadmin/extaudit/internal/genesys"
	"github.com/gcadmin/extaudit/internal/logging"
	"github.com/gcadmin/extaudit/internal/tokenfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagBaseURL    string
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// resolvedEnv holds the environment overrides read alongside the config.
var resolvedEnv config.EnvOverrides

// httpClientTimeout bounds each API request so a hung connection cannot
// stall a run indefinitely. Retry and throttle sleeps are not covered by it.
const httpClientTimeout = 60 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extaudit",
		Short:   "Genesys Cloud extension audit and repair",
		Long:    "Audit user profile extensions against the telephony extension registry and patch missing assignments.",
		Version: version,
		// Silence cobra's default error/usage printing — main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "API endpoint (e.g. https://api.mypurecloud.ie)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newRepairCmd())
	cmd.AddCommand(newRunsCmd())

	return cmd
}

// loadConfig resolves the effective configuration from defaults, config
// file, a .env file if present, environment variables, and CLI flags.
func loadConfig() error {
	// Optional .env support for local use; absence is not an error.
	_ = godotenv.Load()

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagBaseURL != "" {
		cfg.API.BaseURL = flagBaseURL
	}

	resolvedCfg = cfg
	resolvedEnv = env

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags, with credential redaction applied. Config-file log level is the
// baseline; --verbose and --quiet override it.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	text := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return slog.New(logging.NewRedactHandler(text))
}

// buildClient assembles the API client from the resolved config and the
// credential chain: an env token wins, otherwise the stored token file.
func buildClient(logger *slog.Logger) (*genesys.Client, error) {
	src, err := tokenSource()
	if err != nil {
		return nil, err
	}

	return genesys.NewClient(resolvedCfg.API.BaseURL, defaultHTTPClient(), src, logger), nil
}

// tokenSource picks the bearer credential: EXTAUDIT_ACCESS_TOKEN when set,
// otherwise the token file written by 'auth login' or 'auth set-token'.
func tokenSource() (genesys.TokenSource, error) {
	if resolvedEnv.AccessToken != "" {
		return genesys.StaticToken(resolvedEnv.AccessToken), nil
	}

	tok, _, err := tokenfile.Load(config.DefaultTokenPath())
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, fmt.Errorf("no credentials: set %s or run 'extaudit auth login'", config.EnvAccessToken)
	}

	return genesys.TokenFromOAuth(tok), nil
}
