package utils // helpers for random token material and digests

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// RandomURLSafe returns n bytes of cryptographically secure random data
// encoded with the URL-safe base64 alphabet, without padding. It is used for
// OAuth state values and for single-use email tokens.
func RandomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a raw token value. Only the
// digest is ever stored, so a leaked store entry cannot be replayed as the
// token itself.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
