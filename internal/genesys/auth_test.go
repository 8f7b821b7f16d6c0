package genesys

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"minted","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	tok, err := Login(context.Background(), srv.URL, "client-id", "client-secret", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "minted", tok.AccessToken)
	assert.True(t, tok.Valid())
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	_, err := Login(context.Background(), srv.URL, "client-id", "wrong", testLogger())
	require.Error(t, err)
}

func TestTokenFromOAuth(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		src := TokenFromOAuth(&oauth2.Token{
			AccessToken: "abc",
			Expiry:      time.Now().Add(time.Hour),
		})

		got, err := src.Token()
		require.NoError(t, err)
		assert.Equal(t, "abc", got)
	})

	t.Run("expired token", func(t *testing.T) {
		src := TokenFromOAuth(&oauth2.Token{
			AccessToken: "abc",
			Expiry:      time.Now().Add(-time.Minute),
		})

		_, err := src.Token()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("nil token", func(t *testing.T) {
		_, err := TokenFromOAuth(nil).Token()
		require.Error(t, err)
	})
}

func TestStaticToken(t *testing.T) {
	got, err := StaticToken("abc").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = StaticToken("").Token()
	require.Error(t, err)
}
