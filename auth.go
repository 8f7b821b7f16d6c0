package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/gcadmin/extaudit/internal/config"
	"github.com/gcadmin/extaudit/internal/genesys"
	"github.com/gcadmin/extaudit/internal/tokenfile"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthSetTokenCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Obtain a token via the OAuth client-credentials grant",
		Long: `Perform the OAuth2 client-credentials grant against the regional login
endpoint and store the minted token.

The client id and secret are read from ` + config.EnvClientID + ` and
` + config.EnvClientSecret + ` (a .env file in the working directory is honored).`,
		RunE: runAuthLogin,
	}
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if resolvedEnv.ClientID == "" || resolvedEnv.ClientSecret == "" {
		return fmt.Errorf("auth login requires %s and %s", config.EnvClientID, config.EnvClientSecret)
	}

	loginURL := resolvedCfg.API.LoginURL
	if resolvedEnv.LoginURL != "" {
		loginURL = resolvedEnv.LoginURL
	}

	tok, err := genesys.Login(cmd.Context(), loginURL, resolvedEnv.ClientID, resolvedEnv.ClientSecret, logger)
	if err != nil {
		return err
	}

	meta := map[string]string{"login_url": loginURL, "base_url": resolvedCfg.API.BaseURL}
	if err := tokenfile.Save(config.DefaultTokenPath(), tok, meta); err != nil {
		return err
	}

	statusf("Logged in. Token stored at %s (expires %s).\n",
		config.DefaultTokenPath(), formatTime(tok.Expiry))

	return nil
}

func newAuthSetTokenCmd() *cobra.Command {
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "set-token TOKEN",
		Short: "Store a bearer token obtained elsewhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("token must not be empty")
			}

			tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
			if expiresIn > 0 {
				tok.Expiry = time.Now().Add(expiresIn)
			}

			if err := tokenfile.Save(config.DefaultTokenPath(), tok, nil); err != nil {
				return err
			}

			statusf("Token stored at %s.\n", config.DefaultTokenPath())

			return nil
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime from now (0 = unknown)")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := tokenfile.Remove(config.DefaultTokenPath()); err != nil {
				return err
			}

			statusf("Token removed.\n")

			return nil
		},
	}
}
