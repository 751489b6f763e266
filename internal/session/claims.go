package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend's token payload the client reads.
// Tokens are decoded without signature verification: the signing secret
// lives on the server and the client only needs display data. The backend
// stays the authority on whether a token is actually valid.
type Claims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// DecodeClaims parses a bearer token's claims without verifying it.
func DecodeClaims(token string) (*Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	c := &Claims{UserID: tc.Subject, Email: tc.Email}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// Expired reports whether the token's exp claim lies before now. Tokens
// without an exp claim never report expired.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
