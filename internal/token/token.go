// Package token generates the two kinds of proof material used by the
// auth flows: a short code a human types from their inbox, and a long
// random value that only ever travels inside a URL.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const verificationCodeDigits = 6

// GenerateVerificationCode returns a 6-digit numeric code drawn from a
// cryptographically secure source. Leading zeros are preserved.
func GenerateVerificationCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < verificationCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	return fmt.Sprintf("%06d", n), nil
}

// GenerateResetToken returns 20 random bytes hex-encoded (40 chars),
// suitable for embedding in a password reset link.
func GenerateResetToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionID returns 32 random bytes hex-encoded, used as the
// opaque server-side session key.
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
