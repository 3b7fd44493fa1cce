package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost balances hashing time against brute-force resistance
// for a service authenticating one request per mount, not per file op.
const DefaultBcryptCost = 10

// MinPasswordLength and MaxPasswordLength bound what HashPassword
// accepts; bcrypt itself silently truncates past 72 bytes, so this
// package enforces the limit rather than letting two different
// passwords beyond it collide on the same hash.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("identity: password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("identity: password must be at most 72 characters")
)

// ValidatePassword checks a plaintext password's length before it is
// ever hashed.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns the bcrypt hash stored alongside a principal.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches a stored bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
