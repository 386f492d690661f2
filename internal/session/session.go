// Package session defines the payloads carried by the signed browser cookie.
//
// A cookie is in exactly one of two states: Pending (issued at auth-start,
// before the user has consented) or Authenticated (issued at auth-callback,
// bound to a Google user id). The two states are distinct types so that a
// payload with a user id but no prior authorization attempt cannot be built.
package session

import "time"

// Kind discriminates the cookie payload on the wire.
type Kind string

const (
	KindPending       Kind = "pending"
	KindAuthenticated Kind = "authenticated"
)

// Session is a decoded cookie payload, either Pending or Authenticated.
type Session interface {
	Kind() Kind
}

// Pending is the payload issued at auth-start and consumed at auth-callback.
// State must match the state query parameter Google sends back.
type Pending struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"codeVerifier"`
	RedirectTo   string    `json:"redirectTo"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// Authenticated is the payload issued at auth-callback. The code verifier is
// deliberately not carried over: nothing reads it after the code exchange.
type Authenticated struct {
	State        string    `json:"state"`
	RedirectTo   string    `json:"redirectTo"`
	IssuedAt     time.Time `json:"issuedAt"`
	GoogleUserID string    `json:"googleUserId"`
}

func (Pending) Kind() Kind       { return KindPending }
func (Authenticated) Kind() Kind { return KindAuthenticated }
