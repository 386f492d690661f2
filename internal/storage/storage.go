package storage

import (
	"context"
	"errors"
	"time"
)

// ErrTokenRecordNotFound is returned when no record exists for a Google user id
var ErrTokenRecordNotFound = errors.New("token record not found")

// TokenRecord is the durable server-side state for one authenticated identity.
// The refresh token never leaves this process; the access token is a
// short-lived cache of the last refresh result.
type TokenRecord struct {
	GoogleUserID   string    `json:"google_user_id" firestore:"google_user_id"`
	RefreshToken   string    `json:"refresh_token" firestore:"refresh_token"`
	AccessToken    string    `json:"access_token,omitempty" firestore:"access_token,omitempty"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty" firestore:"token_expires_at,omitempty"`
	ProfileEmail   string    `json:"profile_email,omitempty" firestore:"profile_email,omitempty"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updated_at"`
}

// TokenStore is the durable mapping from Google user id to token record.
//
// Upsert inserts or replaces the record for its GoogleUserID. Implementations
// must be safe under concurrent calls for distinct keys; concurrent writes for
// the same key are last-writer-wins. Any transport failure is returned as-is
// for the caller to surface; nothing here retries.
type TokenStore interface {
	Upsert(ctx context.Context, record *TokenRecord) error
	Get(ctx context.Context, googleUserID string) (*TokenRecord, error)
	Close() error
}
