// Package auth guards administrative operations.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks an administrative credential.
type Authenticator interface {
	Authenticate(credential string) bool
}

// Plaintext compares the credential with a shared secret. An empty secret
// rejects every credential.
type Plaintext struct {
	secret []byte
}

// NewPlaintext creates a shared-secret authenticator.
func NewPlaintext(secret string) *Plaintext {
	return &Plaintext{secret: []byte(secret)}
}

// Authenticate reports whether credential equals the secret.
func (p *Plaintext) Authenticate(credential string) bool {
	if len(p.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(p.secret, []byte(credential)) == 1
}

// Bcrypt verifies credentials against a bcrypt hash.
type Bcrypt struct {
	hash []byte
}

// NewBcrypt validates hash and returns an authenticator for it.
func NewBcrypt(hash string) (*Bcrypt, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return &Bcrypt{hash: []byte(hash)}, nil
}

// Authenticate reports whether credential matches the hash.
func (b *Bcrypt) Authenticate(credential string) bool {
	return bcrypt.CompareHashAndPassword(b.hash, []byte(credential)) == nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// New prefers the bcrypt hash when one is configured.
func New(password, passwordHash string) (Authenticator, error) {
	if passwordHash != "" {
		return NewBcrypt(passwordHash)
	}
	return NewPlaintext(password), nil
}
