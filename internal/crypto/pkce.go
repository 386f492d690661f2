package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierAlphabet is the RFC 7636 unreserved character set for code verifiers.
const verifierAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~"

// DefaultVerifierLength is within the 43-128 range RFC 7636 requires.
const DefaultVerifierLength = 64

// GenerateCodeVerifier draws length cryptographically secure random bytes and
// maps each into the unreserved alphabet. length must be between 43 and 128.
func GenerateCodeVerifier(length int) (string, error) {
	if length < 43 || length > 128 {
		return "", fmt.Errorf("code verifier length %d outside RFC 7636 range 43-128", length)
	}

	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	out := make([]byte, length)
	for i, b := range raw {
		out[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}
	return string(out), nil
}

// DeriveCodeChallenge returns the S256 challenge for a verifier: the SHA-256
// digest of its bytes, base64url-encoded without padding.
func DeriveCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
