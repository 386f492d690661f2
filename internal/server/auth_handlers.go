package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pickframe/photos-front/internal/config"
	"github.com/pickframe/photos-front/internal/cookie"
	"github.com/pickframe/photos-front/internal/crypto"
	"github.com/pickframe/photos-front/internal/googleauth"
	jsonwriter "github.com/pickframe/photos-front/internal/json"
	"github.com/pickframe/photos-front/internal/log"
	"github.com/pickframe/photos-front/internal/session"
	"github.com/pickframe/photos-front/internal/storage"
)

// AuthHandlers serves the auth-start and auth-callback endpoints. The two
// requests are independent and stateless: everything the callback needs from
// the start is carried in the signed cookie.
type AuthHandlers struct {
	serverConfig config.ServerConfig
	googleConfig config.GoogleConfig
	codec        session.Codec
	store        storage.TokenStore
}

// NewAuthHandlers creates auth handlers with dependency injection
func NewAuthHandlers(cfg config.Config, codec session.Codec, store storage.TokenStore) *AuthHandlers {
	return &AuthHandlers{
		serverConfig: cfg.Server,
		googleConfig: cfg.Google,
		codec:        codec,
		store:        store,
	}
}

// StartHandler issues the authorization redirect. It generates the PKCE pair
// and state, seals them into a short-lived Pending cookie, and sends the
// browser to Google's consent page.
func (h *AuthHandlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	redirectTo := r.URL.Query().Get("redirect_to")
	if redirectTo == "" {
		redirectTo = h.serverConfig.FrontendURL
	}

	codeVerifier, err := crypto.GenerateCodeVerifier(crypto.DefaultVerifierLength)
	if err != nil {
		log.LogError("Failed to generate code verifier: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to start authorization")
		return
	}
	codeChallenge := crypto.DeriveCodeChallenge(codeVerifier)
	state := uuid.NewString()

	cookieValue, err := h.codec.Encode(session.Pending{
		State:        state,
		CodeVerifier: codeVerifier,
		RedirectTo:   redirectTo,
		IssuedAt:     time.Now(),
	})
	if err != nil {
		log.LogError("Failed to encode pending session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to start authorization")
		return
	}

	cookie.SetSession(w, cookieValue, cookie.PendingMaxAge)
	http.Redirect(w, r, googleauth.AuthCodeURL(h.googleConfig, state, codeChallenge), http.StatusFound)
}

// CallbackHandler consumes the provider redirect. It verifies the Pending
// cookie against the returned state, exchanges the code, persists token
// custody, and re-issues the cookie bound to the authenticated identity.
// Cookie absence, a bad signature, and a state mismatch are all answered
// identically so the response carries no oracle information.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerError := query.Get("error"); providerError != "" {
		log.LogWarnWithFields("auth", "Provider returned an error", map[string]any{
			"error": providerError,
		})
		jsonwriter.WriteBadRequest(w, "Google OAuth error: "+providerError)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		jsonwriter.WriteBadRequest(w, "Missing code or state parameter")
		return
	}

	pending, ok := h.pendingSession(r)
	if !ok || pending.State != state {
		// The pending cookie, if any, is spent; clearing unconditionally
		// keeps this response identical across the absent, forged, and
		// mismatched cases.
		cookie.ClearSession(w)
		jsonwriter.WriteBadRequest(w, "Invalid OAuth session")
		return
	}

	ctx := r.Context()

	token, err := googleauth.ExchangeCode(ctx, h.googleConfig, code, pending.CodeVerifier)
	if err != nil {
		log.LogErrorWithFields("auth", "Code exchange failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
		return
	}

	identity, err := googleauth.FetchIdentity(ctx, h.googleConfig, token)
	if err != nil {
		log.LogErrorWithFields("auth", "Identity fetch failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
		return
	}

	// Google only returns a refresh token on fresh consent. A prior record
	// may carry one from an earlier authorization; without either the user
	// must re-consent before token custody works.
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		existing, err := h.store.Get(ctx, identity.Sub)
		if err != nil && !errors.Is(err, storage.ErrTokenRecordNotFound) {
			log.LogErrorWithFields("auth", "Token record lookup failed", map[string]any{
				"error": err.Error(),
			})
			jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
			return
		}
		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}
	if refreshToken == "" {
		cookie.ClearSession(w)
		jsonwriter.WriteUnauthorized(w, "Missing refresh token; please re-consent")
		return
	}

	record := &storage.TokenRecord{
		GoogleUserID:   identity.Sub,
		RefreshToken:   refreshToken,
		AccessToken:    token.AccessToken,
		TokenExpiresAt: token.Expiry,
		ProfileEmail:   identity.Email,
	}
	if err := h.store.Upsert(ctx, record); err != nil {
		log.LogErrorWithFields("auth", "Token record upsert failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
		return
	}

	// The one-shot OAuth state has served its purpose; the long-lived cookie
	// gets a fresh opaque identifier.
	sessionState, err := crypto.GenerateSecureToken()
	if err != nil {
		log.LogError("Failed to generate session state: %v", err)
		jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
		return
	}

	cookieValue, err := h.codec.Encode(session.Authenticated{
		State:        sessionState,
		RedirectTo:   pending.RedirectTo,
		IssuedAt:     time.Now(),
		GoogleUserID: identity.Sub,
	})
	if err != nil {
		log.LogError("Failed to encode authenticated session: %v", err)
		jsonwriter.WriteInternalServerError(w, "OAuth callback failed")
		return
	}

	log.LogInfoWithFields("auth", "User authenticated", map[string]any{
		"googleUserId": identity.Sub,
	})

	location := pending.RedirectTo
	if location == "" {
		location = h.serverConfig.FrontendURL
	}

	cookie.SetSession(w, cookieValue, cookie.AuthenticatedMaxAge)
	http.Redirect(w, r, location, http.StatusFound)
}

// pendingSession decodes the request's cookie into a Pending payload. Absent
// cookie, bad signature, and wrong payload kind all return false.
func (h *AuthHandlers) pendingSession(r *http.Request) (session.Pending, bool) {
	value, err := cookie.GetSession(r)
	if err != nil {
		return session.Pending{}, false
	}
	decoded, ok := h.codec.Decode(value)
	if !ok {
		return session.Pending{}, false
	}
	pending, ok := decoded.(session.Pending)
	return pending, ok
}
