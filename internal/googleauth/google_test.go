package googleauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pickframe/photos-front/internal/config"
)

func testGoogleConfig() config.GoogleConfig {
	return config.GoogleConfig{
		ClientID:     "test-client-id",
		ClientSecret: config.Secret("test-client-secret"),
		RedirectURI:  "https://gateway.example.com/auth-callback",
		Scopes:       config.DefaultScopes,
	}
}

func TestAuthCodeURL(t *testing.T) {
	rawURL := AuthCodeURL(testGoogleConfig(), "test-state", "test-challenge")

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "test-client-id", query.Get("client_id"))
	assert.Equal(t, "https://gateway.example.com/auth-callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "test-state", query.Get("state"))
	assert.Equal(t, "test-challenge", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
	assert.Equal(t, "true", query.Get("include_granted_scopes"))
	assert.Contains(t, query.Get("scope"), "openid")
	assert.Contains(t, query.Get("scope"), "photospicker.mediaitems.readonly")
}

func TestAuthCodeURLCustomEndpoint(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_AUTH_URL", "https://auth.test.local/authorize")

	rawURL := AuthCodeURL(testGoogleConfig(), "state", "challenge")

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "auth.test.local", parsed.Host)
	assert.Equal(t, "/authorize", parsed.Path)
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-access-token",
			"refresh_token": "new-refresh-token",
			"token_type": "Bearer",
			"expires_in": 3600
		}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", server.URL+"/token")

	token, err := ExchangeCode(context.Background(), testGoogleConfig(), "test-code", "test-verifier")
	require.NoError(t, err)

	assert.Equal(t, "new-access-token", token.AccessToken)
	assert.Equal(t, "new-refresh-token", token.RefreshToken)
	assert.True(t, token.Valid())

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "test-code", gotForm.Get("code"))
	assert.Equal(t, "test-verifier", gotForm.Get("code_verifier"))
	assert.Equal(t, "test-client-id", gotForm.Get("client_id"))
	assert.Equal(t, "test-client-secret", gotForm.Get("client_secret"))
	assert.Equal(t, "https://gateway.example.com/auth-callback", gotForm.Get("redirect_uri"))
}

func TestExchangeCodeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Bad authorization code"}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", server.URL+"/token")

	_, err := ExchangeCode(context.Background(), testGoogleConfig(), "bad-code", "verifier")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeFailed))
	// Provider detail is preserved for server-side logs.
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshToken(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "refreshed-access-token",
			"token_type": "Bearer",
			"expires_in": 3599
		}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", server.URL+"/token")

	token, err := RefreshToken(context.Background(), testGoogleConfig(), "stored-refresh-token")
	require.NoError(t, err)

	assert.Equal(t, "refreshed-access-token", token.AccessToken)
	// No rotation in the response; the supplied refresh token is carried over.
	assert.Equal(t, "stored-refresh-token", token.RefreshToken)

	assert.Equal(t, "refresh_token", gotForm.Get("grant_type"))
	assert.Equal(t, "stored-refresh-token", gotForm.Get("refresh_token"))
	assert.Equal(t, "test-client-id", gotForm.Get("client_id"))
}

func TestRefreshTokenRotation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "refreshed-access-token",
			"refresh_token": "rotated-refresh-token",
			"token_type": "Bearer",
			"expires_in": 3600
		}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", server.URL+"/token")

	token, err := RefreshToken(context.Background(), testGoogleConfig(), "stored-refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh-token", token.RefreshToken)
}

func TestRefreshTokenRevoked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Token has been revoked"}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", server.URL+"/token")

	_, err := RefreshToken(context.Background(), testGoogleConfig(), "revoked-refresh-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshFailed))
	assert.Contains(t, err.Error(), "revoked")
}

func TestFetchIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub": "google-user-123", "email": "user@example.com"}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_USERINFO_URL", server.URL+"/userinfo")

	token := &oauth2.Token{
		AccessToken: "test-access-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
	identity, err := FetchIdentity(context.Background(), testGoogleConfig(), token)
	require.NoError(t, err)

	assert.Equal(t, "google-user-123", identity.Sub)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestFetchIdentityMissingSubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email": "user@example.com"}`))
	}))
	defer server.Close()
	t.Setenv("GOOGLE_USERINFO_URL", server.URL+"/userinfo")

	token := &oauth2.Token{AccessToken: "token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	_, err := FetchIdentity(context.Background(), testGoogleConfig(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentityFetchFailed))
}

func TestFetchIdentityUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv("GOOGLE_USERINFO_URL", server.URL+"/userinfo")

	token := &oauth2.Token{AccessToken: "expired", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	_, err := FetchIdentity(context.Background(), testGoogleConfig(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentityFetchFailed))
	assert.Contains(t, err.Error(), "401")
}

func TestExpiresIn(t *testing.T) {
	assert.Equal(t, 0, ExpiresIn(&oauth2.Token{}))
	assert.Equal(t, 0, ExpiresIn(&oauth2.Token{Expiry: time.Now().Add(-time.Minute)}))

	seconds := ExpiresIn(&oauth2.Token{Expiry: time.Now().Add(time.Hour)})
	assert.InDelta(t, 3600, seconds, 2)
}
