// Package auth holds the password hashing and session token primitives.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// SessionTokenBytes is the amount of randomness in a session token.
const SessionTokenBytes = 32

// Cost is the bcrypt work factor used by HashPassword.
var Cost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password with a random per-call salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken returns an opaque, hex-encoded random token.
func GenerateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SetCost validates and applies a bcrypt cost.
func SetCost(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return errors.New("bcrypt cost out of range")
	}
	Cost = cost
	return nil
}
