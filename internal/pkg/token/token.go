package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RefreshTokenBytes of entropy per refresh token; hex encoding doubles the
// length, so tokens are 64 characters.
const RefreshTokenBytes = 32

// NewRefreshToken returns an opaque refresh token.
func NewRefreshToken() (string, error) {
	return randomHex(RefreshTokenBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read %d random bytes: %w", n, err)
	}
	return hex.EncodeToString(b), nil
}
