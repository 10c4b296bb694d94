package model

import "time"

// TokenKind distinguishes the two halves of a token pair.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// AuthToken is a server-side token record. Tokens are opaque random
// strings; the server is the sole authority on their validity.
type AuthToken struct {
	Token     string    `json:"-"` // never serialized back out
	UserID    string    `json:"user_id"`
	Kind      TokenKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the token's expiry has passed.
func (t *AuthToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token may still be used.
func (t *AuthToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
