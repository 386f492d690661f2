package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pickframe/photos-front/internal/crypto"
)

// Codec encodes session payloads into `base64url(body).base64url(signature)`
// cookie values and verifies them on the way back in.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec signing with the given process-wide secret.
func NewCodec(secret []byte) Codec {
	return Codec{secret: secret}
}

// envelope is the wire shape shared by both payload kinds.
type envelope struct {
	Kind         Kind   `json:"kind,omitempty"`
	State        string `json:"state"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	RedirectTo   string `json:"redirectTo"`
	IssuedAt     int64  `json:"issuedAt"` // unix milliseconds
	GoogleUserID string `json:"googleUserId,omitempty"`
}

// Encode serializes a payload and signs it.
func (c Codec) Encode(s Session) (string, error) {
	var env envelope
	switch p := s.(type) {
	case Pending:
		env = envelope{
			Kind:         KindPending,
			State:        p.State,
			CodeVerifier: p.CodeVerifier,
			RedirectTo:   p.RedirectTo,
			IssuedAt:     p.IssuedAt.UnixMilli(),
		}
	case Authenticated:
		env = envelope{
			Kind:         KindAuthenticated,
			State:        p.State,
			RedirectTo:   p.RedirectTo,
			IssuedAt:     p.IssuedAt.UnixMilli(),
			GoogleUserID: p.GoogleUserID,
		}
	default:
		return "", fmt.Errorf("unknown session payload type %T", s)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session payload: %w", err)
	}

	body := base64.RawURLEncoding.EncodeToString(data)
	signature := crypto.SignData(body, c.secret)
	return body + "." + signature, nil
}

// Decode verifies a cookie value and returns its payload. The second return
// is false for any untrusted or malformed input: bad structure, bad signature,
// or a body that fails to parse after the signature checks out. Callers must
// treat all of those identically to an absent cookie.
func (c Codec) Decode(cookie string) (Session, bool) {
	body, signature, found := strings.Cut(cookie, ".")
	if !found || body == "" || signature == "" {
		return nil, false
	}

	if !crypto.ValidateSignedData(body, signature, c.secret) {
		return nil, false
	}

	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}

	kind := env.Kind
	if kind == "" {
		// Cookies minted before the kind tag existed are shape-discriminated.
		if env.GoogleUserID != "" {
			kind = KindAuthenticated
		} else {
			kind = KindPending
		}
	}

	issuedAt := time.UnixMilli(env.IssuedAt)
	switch kind {
	case KindPending:
		if env.State == "" || env.CodeVerifier == "" {
			return nil, false
		}
		return Pending{
			State:        env.State,
			CodeVerifier: env.CodeVerifier,
			RedirectTo:   env.RedirectTo,
			IssuedAt:     issuedAt,
		}, true
	case KindAuthenticated:
		if env.State == "" || env.GoogleUserID == "" {
			return nil, false
		}
		return Authenticated{
			State:        env.State,
			RedirectTo:   env.RedirectTo,
			IssuedAt:     issuedAt,
			GoogleUserID: env.GoogleUserID,
		}, true
	default:
		return nil, false
	}
}
