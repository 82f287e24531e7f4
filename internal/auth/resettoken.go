package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Reset token format: prt_{secret}
// Example: prt_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const resetSecretLen = 32 // hex encoded 16 bytes

var (
	// ErrInvalidResetToken indicates the reset token format is invalid.
	ErrInvalidResetToken = errors.New("invalid reset token format")

	resetTokenRegex = regexp.MustCompile(`^prt_([a-f0-9]{32})$`)
)

// GeneratedResetToken contains the parts of a newly minted reset token.
type GeneratedResetToken struct {
	Plaintext string // Full token, emailed to the user, never stored
	Hash      string // Argon2id hash for storage
}

// GenerateResetToken creates an opaque password-reset token.
// The plaintext goes out by email; only the hash is persisted.
func GenerateResetToken() (*GeneratedResetToken, error) {
	secretBytes := make([]byte, resetSecretLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := "prt_" + hex.EncodeToString(secretBytes)

	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedResetToken{Plaintext: plaintext, Hash: hash}, nil
}

// ParseResetToken validates the token format before any hashing work.
func ParseResetToken(token string) error {
	if !resetTokenRegex.MatchString(token) {
		return ErrInvalidResetToken
	}
	return nil
}
