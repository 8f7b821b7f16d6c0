package genesys

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenPath is the OAuth token endpoint relative to the regional login URL.
const tokenPath = "/oauth/token"

// Login performs the OAuth2 client-credentials grant against the regional
// login endpoint (e.g. "https://login.mypurecloud.com") and returns the
// minted token. Client-credentials tokens are not refreshable; callers
// re-run Login when the stored token expires.
func Login(ctx context.Context, loginURL, clientID, clientSecret string, logger *slog.Logger) (*oauth2.Token, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimRight(loginURL, "/") + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("genesys: client credentials grant: %w", err)
	}

	logger.Info("obtained access token",
		slog.String("token_url", cfg.TokenURL),
		slog.Time("expires", tok.Expiry),
	)

	return tok, nil
}

// oauthTokenSource adapts a stored oauth2.Token to the client's TokenSource.
type oauthTokenSource struct {
	tok *oauth2.Token
}

// TokenFromOAuth wraps a stored OAuth token as a TokenSource. The source
// fails once the token expires, prompting a fresh login.
func TokenFromOAuth(tok *oauth2.Token) TokenSource {
	return &oauthTokenSource{tok: tok}
}

func (s *oauthTokenSource) Token() (string, error) {
	if s.tok == nil || s.tok.AccessToken == "" {
		return "", fmt.Errorf("genesys: no stored token, run 'extaudit auth login'")
	}

	if !s.tok.Valid() {
		return "", fmt.Errorf("genesys: stored token expired, run 'extaudit auth login'")
	}

	return s.tok.AccessToken, nil
}
