// Package googleauth wraps the three calls this system makes against Google's
// OAuth surface: the authorization-code exchange, the refresh-token grant, and
// the minimal OpenID userinfo fetch. Endpoint URLs can be overridden through
// environment variables so tests can point at httptest servers.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pickframe/photos-front/internal/config"
)

// Error taxonomy for the HTTP boundary. Provider detail is carried in the
// wrapped message for server-side logs; handlers classify with errors.Is and
// return opaque messages to clients.
var (
	ErrExchangeFailed      = errors.New("authorization code exchange failed")
	ErrRefreshFailed       = errors.New("access token refresh failed")
	ErrIdentityFetchFailed = errors.New("identity fetch failed")
)

// Identity is the minimal OpenID identity this system needs
type Identity struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
}

// AuthCodeURL builds the Google authorization URL for a PKCE flow.
// access_type=offline plus prompt=consent forces refresh-token issuance on
// every authorization, which token custody depends on.
func AuthCodeURL(googleConfig config.GoogleConfig, state, codeChallenge string) string {
	conf := newOAuth2Config(googleConfig)
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges an authorization code plus its PKCE verifier for tokens
func ExchangeCode(ctx context.Context, googleConfig config.GoogleConfig, code, codeVerifier string) (*oauth2.Token, error) {
	conf := newOAuth2Config(googleConfig)
	token, err := conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExchangeFailed, providerDetail(err))
	}
	return token, nil
}

// RefreshToken performs a refresh-token grant. Google may rotate the refresh
// token; the returned token carries the rotated value when that happens and
// the supplied one otherwise, so callers can persist it unconditionally.
func RefreshToken(ctx context.Context, googleConfig config.GoogleConfig, refreshToken string) (*oauth2.Token, error) {
	conf := newOAuth2Config(googleConfig)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRefreshFailed, providerDetail(err))
	}
	return token, nil
}

// FetchIdentity fetches the OpenID subject and email for an access token
func FetchIdentity(ctx context.Context, googleConfig config.GoogleConfig, token *oauth2.Token) (Identity, error) {
	conf := newOAuth2Config(googleConfig)
	client := conf.Client(ctx, token)
	client.Timeout = 30 * time.Second

	userInfoURL := "https://openidconnect.googleapis.com/v1/userinfo"
	if customURL := os.Getenv("GOOGLE_USERINFO_URL"); customURL != "" {
		userInfoURL = customURL
	}

	resp, err := client.Get(userInfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrIdentityFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: status %d", ErrIdentityFetchFailed, resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return Identity{}, fmt.Errorf("%w: decoding response: %v", ErrIdentityFetchFailed, err)
	}
	if identity.Sub == "" {
		return Identity{}, fmt.Errorf("%w: response missing subject", ErrIdentityFetchFailed)
	}

	return identity, nil
}

// ExpiresIn converts a token's absolute expiry into the seconds-from-now form
// the token endpoint response uses
func ExpiresIn(token *oauth2.Token) int {
	if token.Expiry.IsZero() {
		return 0
	}
	seconds := int(time.Until(token.Expiry).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// providerDetail surfaces the provider's error body for server-side logging
func providerDetail(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Sprintf("status %d: %s", retrieveErr.Response.StatusCode, string(retrieveErr.Body))
	}
	return err.Error()
}

// newOAuth2Config creates the oauth2 config from our Config
func newOAuth2Config(googleConfig config.GoogleConfig) oauth2.Config {
	// Use custom OAuth endpoints if provided (for testing)
	endpoint := google.Endpoint
	if authURL := os.Getenv("GOOGLE_OAUTH_AUTH_URL"); authURL != "" {
		endpoint.AuthURL = authURL
	}
	if tokenURL := os.Getenv("GOOGLE_OAUTH_TOKEN_URL"); tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}

	return oauth2.Config{
		ClientID:     googleConfig.ClientID,
		ClientSecret: string(googleConfig.ClientSecret),
		RedirectURL:  googleConfig.RedirectURI,
		Scopes:       googleConfig.Scopes,
		Endpoint:     endpoint,
	}
}
