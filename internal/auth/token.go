package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenBytes is the entropy of a session token (256 bits).
const tokenBytes = 32

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
