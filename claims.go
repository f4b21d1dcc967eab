package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType scopes a token to one stage of the account lifecycle. The
// type fixes the claim shape and the expiry policy.
type TokenType string

const (
	// UserToken is the long lived session credential issued at signin
	UserToken TokenType = "USER_TOKEN"
	// RegistrationToken is short lived, issued at signup and consumed
	// exactly once by confirm.
	RegistrationToken TokenType = "REGISTRATION_TOKEN"
	// ResetPasswordToken is short lived, issued at forgot password and
	// consumed exactly once by confirm password.
	ResetPasswordToken TokenType = "RESET_PW_TOKEN"
)

// SingleUse reports whether tokens of this type are consumed at most
// once and therefore checked against the revocation store.
func (t TokenType) SingleUse() bool {
	return t == RegistrationToken || t == ResetPasswordToken
}

// Valid reports whether the value is a known token type
func (t TokenType) Valid() bool {
	switch t {
	case UserToken, RegistrationToken, ResetPasswordToken:
		return true
	default:
		return false
	}
}

// TokenPayload carries the identity attributes bound into a token.
// Registration and reset tokens omit the role name and code.
type TokenPayload struct {
	ID       string `json:"id"`
	RoleID   string `json:"role_id,omitempty"`
	RoleCode string `json:"role_code,omitempty"`
	RoleName string `json:"role_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// TokenClaims is the signed, self contained claim set carried by every
// token this package issues.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"type,omitempty"`
	UID       string    `json:"uid,omitempty"`
	RoleID    string    `json:"role_id,omitempty"`
	RoleCode  string    `json:"role_code,omitempty"`
	RoleName  string    `json:"role_name,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Type returns the token type claim
func (c *TokenClaims) Type() TokenType {
	return c.TokenType
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RevocationKey derives the identifier used to mark single use tokens
// consumed. Keyed by claims, not by the raw token string, so a
// re-signed or replayed copy of the same grant is still rejected.
func (c *TokenClaims) RevocationKey() string {
	return c.UserID() + ":" + string(c.TokenType)
}
