// Package assertion mints and verifies a short-lived internal session
// assertion: a signed claim that a principal was granted a given
// rights mask on a given share, cached on the session so that a
// reload-triggered rebind (§4.4) can re-validate the principal without
// a second round trip to the auth server within the assertion's
// lifetime.
package assertion

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL bounds how long a minted assertion is accepted without
// re-authenticating against the auth server.
const DefaultTTL = 5 * time.Minute

// secretLen is the size of a generated HMAC signing key.
const secretLen = 32

// Claims is the JWT payload: the share name and the rights mask
// granted at mount time, alongside the standard subject/expiry fields.
// The subject carries the principal.
type Claims struct {
	Share  string `json:"shr"`
	Rights uint8  `json:"rgt"`
	jwt.RegisteredClaims
}

// Minter mints and verifies assertions under one HMAC secret. A Minter
// is process-local: it is never shared with another server instance or
// with the auth server, so a secret generated at startup is enough.
type Minter struct {
	secret []byte
	ttl    time.Duration
}

// NewMinter returns a Minter signing with secret. ttl of 0 uses
// DefaultTTL.
func NewMinter(secret []byte, ttl time.Duration) *Minter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Minter{secret: secret, ttl: ttl}
}

// NewRandomMinter returns a Minter signing with a freshly generated
// random secret, for a server that has no configured assertion secret.
func NewRandomMinter(ttl time.Duration) (*Minter, error) {
	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("assertion: generate secret: %w", err)
	}
	return NewMinter(secret, ttl), nil
}

// Mint returns a signed assertion for principal's rights on shareName.
func (m *Minter) Mint(principal, shareName string, rights uint8) (string, error) {
	now := time.Now()
	claims := Claims{
		Share:  shareName,
		Rights: rights,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks that raw is a currently-valid assertion for principal
// on shareName, returning the rights mask it carries.
func (m *Minter) Verify(raw, principal, shareName string) (uint8, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("assertion: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, fmt.Errorf("assertion: invalid token")
	}
	if claims.Subject != principal || claims.Share != shareName {
		return 0, fmt.Errorf("assertion: token does not match principal/share")
	}
	return claims.Rights, nil
}
