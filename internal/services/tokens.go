package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// Claims are the bearer token claims. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject as an ObjectID.
func (c *Claims) UserID() types.ObjectID {
	return types.ObjectID(c.Subject)
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer.
func NewTokens(secret string, expiry time.Duration, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(secret), expiry: expiry, now: now}
}

// Issue signs a token for the user and returns it with its expiry.
func (t *Tokens) Issue(id types.ObjectID, role string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, types.InternalError(err)
	}
	return signed, expires, nil
}

// Verify parses a token. Expired tokens and forged or malformed tokens map to distinct
// authentication errors.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, types.AuthenticationError("Token has expired")
	case err != nil:
		return nil, types.AuthenticationError("Invalid Token")
	}
	if !types.IsValidObjectID(claims.Subject) {
		return nil, types.AuthenticationError("Invalid Token")
	}
	return claims, nil
}
