package server

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/pickframe/photos-front/internal/config"
	"github.com/pickframe/photos-front/internal/cookie"
	"github.com/pickframe/photos-front/internal/googleauth"
	jsonwriter "github.com/pickframe/photos-front/internal/json"
	"github.com/pickframe/photos-front/internal/log"
	"github.com/pickframe/photos-front/internal/session"
	"github.com/pickframe/photos-front/internal/storage"
)

// TokenHandlers serves /photos-token: verify the authenticated cookie, mint a
// fresh access token from stored refresh-token custody, return it.
type TokenHandlers struct {
	googleConfig config.GoogleConfig
	codec        session.Codec
	store        storage.TokenStore

	// Collapses concurrent refreshes for the same user; same-key store races
	// are last-writer-wins either way, this just avoids burning refresh
	// grants when a frontend fires parallel requests.
	refreshGroup singleflight.Group
}

// NewTokenHandlers creates token handlers with dependency injection
func NewTokenHandlers(cfg config.Config, codec session.Codec, store storage.TokenStore) *TokenHandlers {
	return &TokenHandlers{
		googleConfig: cfg.Google,
		codec:        codec,
		store:        store,
	}
}

// tokenResponse is the /photos-token success body
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// TokenHandler mints a short-lived access token for the cookie's identity.
// Missing cookie, invalid signature, non-authenticated payload, and missing
// token record are all 401: the client restarts the flow at auth-start.
// A refresh failure is a 500 since it may be transient.
func (h *TokenHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	value, err := cookie.GetSession(r)
	if err != nil {
		jsonwriter.WriteUnauthorized(w, "Not authenticated")
		return
	}

	decoded, ok := h.codec.Decode(value)
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Not authenticated")
		return
	}
	authenticated, ok := decoded.(session.Authenticated)
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Not authenticated")
		return
	}

	response, err, _ := h.refreshGroup.Do(authenticated.GoogleUserID, func() (any, error) {
		return h.refresh(r.Context(), authenticated.GoogleUserID)
	})
	if err != nil {
		if errors.Is(err, storage.ErrTokenRecordNotFound) {
			jsonwriter.WriteUnauthorized(w, "No stored credentials; re-authenticate")
			return
		}
		log.LogErrorWithFields("token", "Access token refresh failed", map[string]any{
			"googleUserId": authenticated.GoogleUserID,
			"error":        err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to refresh access token")
		return
	}

	_ = jsonwriter.Write(w, response)
}

// refresh loads the user's record, performs the refresh grant, and persists
// the updated record. The stored refresh token is preserved when Google does
// not rotate it.
func (h *TokenHandlers) refresh(ctx context.Context, googleUserID string) (*tokenResponse, error) {
	record, err := h.store.Get(ctx, googleUserID)
	if err != nil {
		return nil, err
	}

	token, err := googleauth.RefreshToken(ctx, h.googleConfig, record.RefreshToken)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken != "" {
		record.RefreshToken = token.RefreshToken
	}
	record.AccessToken = token.AccessToken
	record.TokenExpiresAt = token.Expiry

	if err := h.store.Upsert(ctx, record); err != nil {
		return nil, err
	}

	return &tokenResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   googleauth.ExpiresIn(token),
	}, nil
}
