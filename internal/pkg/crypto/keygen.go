// Package crypto provides random secrets for the JMRH portal tooling.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// SessionSecretSize is the number of random bytes in a generated session secret.
	SessionSecretSize = 32

	// DefaultPasswordLength is the length of generated initial passwords.
	DefaultPasswordLength = 16

	// passwordChars avoids characters that are easy to misread.
	passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// ErrInvalidLength indicates a requested secret is too short to be useful.
var ErrInvalidLength = errors.New("invalid length: must be at least 8")

// GenerateSessionSecret returns a random 64-character hex string suitable
// for auth.session_secret.
func GenerateSessionSecret() (string, error) {
	key := make([]byte, SessionSecretSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// GeneratePassword returns a random initial password of length characters.
func GeneratePassword(length int) (string, error) {
	if length < 8 {
		return "", ErrInvalidLength
	}
	return generateRandomString(length, passwordChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	// Generate random bytes
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Map to charset
	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
