package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the error category.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenRevoked       = "TOKEN_REVOKED"
	TextCodeTokenTypeMismatch  = "TOKEN_TYPE_MISMATCH"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeMaintenance        = "MAINTENANCE_MODE"
	TextCodeMismatchedPayload  = "MISMATCHED_USER_DATA"
	TextCodeLinkExpired        = "LINK_EXPIRED"
	TextCodeUserNotActive      = "USER_NOT_ACTIVE"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeStoreUnavailable   = "STORE_UNAVAILABLE"
	TextCodeStoreTxFailed      = "STORE_TX_FAILED"
	TextCodeNotifierFailed     = "NOTIFIER_FAILED"
	TextCodePasswordResetDeny  = "PASSWORD_RESET_DENIED"
	TextCodeDuplicateUser      = "DUPLICATE_USER"
)

// ErrMismatchedHashAndPassword is the uniform credential failure: the
// same category and message whether the identifier is unknown or the
// password is wrong, so signin never confirms account existence.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired marks a token past its expiry instant
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures and undecodable tokens
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked marks a single use token that was already consumed
var ErrTokenRevoked = goerrors.New("authentication token already used", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenTypeMismatch marks a token presented to the wrong gate, e.g.
// a registration token trying to unlock password reset.
var ErrTokenTypeMismatch = goerrors.New("authentication token not valid for this operation", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenTypeMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is the ACL denial
var ErrForbidden = goerrors.New("role is not allowed to perform this operation", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrMaintenance short-circuits every non exempt operation while the
// maintenance switch is on.
var ErrMaintenance = goerrors.New("service is under maintenance", goerrors.CategoryOperation).
	WithTextCode(TextCodeMaintenance).
	WithCode(503)

// ErrMismatchedPayload is the business failure for a confirmation link
// whose base64 payload does not match the token claims.
var ErrMismatchedPayload = goerrors.New("mismatched user data", goerrors.CategoryConflict).
	WithTextCode(TextCodeMismatchedPayload).
	WithCode(goerrors.CodeBadRequest)

// ErrLinkExpired is the business failure when activation affects zero
// rows: the link was already consumed or the account is gone.
var ErrLinkExpired = goerrors.New("link has already expired or is no longer available", goerrors.CategoryConflict).
	WithTextCode(TextCodeLinkExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotActive is returned by authenticated flows whose token
// outlived the account it was issued for.
var ErrUserNotActive = goerrors.New("user does not exist and/or is no longer active", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserNotActive).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordResetDenied is the single failure shape for forgot_pw,
// deliberately indistinguishable between unknown, deleted, and
// unactivated accounts.
var ErrPasswordResetDenied = goerrors.New("unable to process password reset request", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordResetDeny).
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyLoginAttempts enforces the signin cool down window
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(429)

// ErrStoreUnavailable is reported when the initial connection
// acquisition fails, before any transaction was opened. Distinct from
// in-transaction failures so operators can tell "never started" from
// "started and rolled back".
var ErrStoreUnavailable = goerrors.New("storage unavailable", goerrors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(503)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation checks for a unique constraint failure as surfaced
// by the sqlite and postgres drivers. Neither driver exposes a typed
// sentinel through database/sql, so this matches on the message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "SQLSTATE=23505")
}
