package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/washdesk-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestGoogleProvider_Name(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{})
	assert.Equal(t, "google", provider.Name())
}

func TestGoogleProvider_GetConsentURL(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost/callback",
	})

	url := provider.GetConsentURL("test-state")

	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
	assert.Contains(t, url, "prompt=select_account")
}

func TestGoogleProvider_ScopesAndEndpoint(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{ClientID: "id", ClientSecret: "secret"})

	assert.Contains(t, provider.config.Scopes, "https://www.googleapis.com/auth/userinfo.email")
	assert.Contains(t, provider.config.Scopes, "https://www.googleapis.com/auth/userinfo.profile")
	assert.Equal(t, google.Endpoint.AuthURL, provider.config.Endpoint.AuthURL)
	assert.Equal(t, google.Endpoint.TokenURL, provider.config.Endpoint.TokenURL)
}

// newFakeGoogle serves a token endpoint and a userinfo endpoint.
func newFakeGoogle(t *testing.T, user map[string]any, userStatus int) *GoogleProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))
		w.WriteHeader(userStatus)
		_ = json.NewEncoder(w).Encode(user)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	provider := NewGoogleProvider(config.OAuthConfig{ClientID: "id", ClientSecret: "secret"})
	provider.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	provider.userInfoURL = srv.URL + "/userinfo"
	return provider
}

func TestGoogleProvider_ExchangeCode(t *testing.T) {
	provider := newFakeGoogle(t, map[string]any{
		"id":             "g-42",
		"email":          "ana@shop.com",
		"verified_email": true,
		"name":           "Ana",
		"picture":        "https://img/ana.png",
	}, http.StatusOK)

	actor, err := provider.ExchangeCode(context.Background(), "code-1")

	require.NoError(t, err)
	assert.Equal(t, "g-42", actor.ID)
	assert.Equal(t, "ana@shop.com", actor.Email)
	assert.Equal(t, "Ana", actor.DisplayName)
	assert.Equal(t, "https://img/ana.png", actor.AvatarURL)
}

func TestGoogleProvider_ExchangeCode_UnverifiedEmail(t *testing.T) {
	provider := newFakeGoogle(t, map[string]any{
		"id":             "g-43",
		"email":          "zwash.office@gmail.com",
		"verified_email": false,
	}, http.StatusOK)

	_, err := provider.ExchangeCode(context.Background(), "code-1")

	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleProvider_ExchangeCode_UserInfoFails(t *testing.T) {
	provider := newFakeGoogle(t, map[string]any{}, http.StatusUnauthorized)

	_, err := provider.ExchangeCode(context.Background(), "code-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "google api returned status 401")
}
