package accounts

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	RoleID() string
	RoleCode() string
	RoleName() string
}

// TokenService signs, parses, and validates typed bearer tokens
type TokenService interface {
	Issue(payload TokenPayload, typ TokenType, opts ...IssueOption) (string, *TokenClaims, error)
	Verify(raw string, typ TokenType) (*TokenClaims, error)
	RemoveToken(claims *TokenClaims) error
}

// IdentityProvider ensures we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
}

// PasswordHasher authenticates passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Notifier sends user facing notifications. Transport mechanics live
// behind this interface; the lifecycle only decides when a failure is
// allowed to fail the enclosing operation (see DeliveryMode).
type Notifier interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailMessage is the payload handed to a Notifier
type MailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// DeliveryMode selects how lifecycle operations treat notifier failures.
type DeliveryMode string

const (
	// DeliveryAwait waits for the notifier and lets a failure roll back
	// the enclosing transaction. No committed user without a usable link.
	DeliveryAwait DeliveryMode = "await"
	// DeliveryFireAndForget commits regardless of mail outcome. An
	// undelivered confirmation leaves the user unconfirmed; accepted
	// trade off for high-volume deployments.
	DeliveryFireAndForget DeliveryMode = "fire_and_forget"
)

// ParseDeliveryMode maps a configuration string to a DeliveryMode,
// defaulting to DeliveryAwait for anything unrecognized.
func ParseDeliveryMode(s string) DeliveryMode {
	if DeliveryMode(s) == DeliveryFireAndForget {
		return DeliveryFireAndForget
	}
	return DeliveryAwait
}

// Config holds accounts options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetUserTokenExpiration() time.Duration
	GetRegistrationTokenExpiration() time.Duration
	GetResetTokenExpiration() time.Duration
	GetBcryptCost() int
	GetMaintenanceMode() bool
	GetAPIBaseURL() string
	GetConfirmationPath() string
	GetMailFrom() string
	GetDeliveryMode() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
