package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifier(t *testing.T) {
	t.Run("produces exactly the requested length", func(t *testing.T) {
		verifier, err := GenerateCodeVerifier(64)
		require.NoError(t, err)
		assert.Len(t, verifier, 64)
	})

	t.Run("uses only the unreserved alphabet", func(t *testing.T) {
		verifier, err := GenerateCodeVerifier(128)
		require.NoError(t, err)
		for _, r := range verifier {
			assert.True(t, strings.ContainsRune(verifierAlphabet, r), "unexpected character %q", r)
		}
	})

	t.Run("no collisions over many draws", func(t *testing.T) {
		seen := make(map[string]bool, 1000)
		for i := 0; i < 1000; i++ {
			verifier, err := GenerateCodeVerifier(64)
			require.NoError(t, err)
			assert.False(t, seen[verifier], "verifier collision after %d draws", i)
			seen[verifier] = true
		}
	})

	t.Run("rejects lengths outside the RFC range", func(t *testing.T) {
		_, err := GenerateCodeVerifier(42)
		assert.Error(t, err)

		_, err = GenerateCodeVerifier(129)
		assert.Error(t, err)
	})
}

func TestDeriveCodeChallenge(t *testing.T) {
	t.Run("matches the RFC 7636 appendix B vector", func(t *testing.T) {
		challenge := DeriveCodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
	})

	t.Run("is deterministic", func(t *testing.T) {
		verifier, err := GenerateCodeVerifier(64)
		require.NoError(t, err)
		assert.Equal(t, DeriveCodeChallenge(verifier), DeriveCodeChallenge(verifier))
	})

	t.Run("is 43 characters of base64url", func(t *testing.T) {
		challenge := DeriveCodeChallenge("any-verifier-at-all")
		assert.Len(t, challenge, 43)
		assert.NotContains(t, challenge, "=")
		assert.NotContains(t, challenge, "+")
		assert.NotContains(t, challenge, "/")
	})
}
