package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey  []byte
	issuer      string
	audience    jwt.ClaimStrings
	expirations map[TokenType]time.Duration
	revocations RevocationStore
	logger      Logger
}

// TokenExpirations maps each token type to its configured lifetime,
// which acts both as the default and as the policy cap for caller
// overrides.
type TokenExpirations map[TokenType]time.Duration

// DefaultTokenExpirations mirror the original deployment: short lived
// confirmation links, day long sessions.
func DefaultTokenExpirations() TokenExpirations {
	return TokenExpirations{
		UserToken:          24 * time.Hour,
		RegistrationToken:  2 * time.Hour,
		ResetPasswordToken: 2 * time.Hour,
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, audience jwt.ClaimStrings, expirations TokenExpirations, revocations RevocationStore, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}

	exp := DefaultTokenExpirations()
	for typ, ttl := range expirations {
		if ttl > 0 {
			exp[typ] = ttl
		}
	}

	return &TokenServiceImpl{
		signingKey:  signingKey,
		issuer:      issuer,
		audience:    audience,
		expirations: exp,
		revocations: revocations,
		logger:      logger,
	}
}

// NewTokenServiceFromConfig builds a TokenService from application
// configuration.
func NewTokenServiceFromConfig(cfg Config, revocations RevocationStore, logger Logger) TokenService {
	expirations := TokenExpirations{
		UserToken:          cfg.GetUserTokenExpiration(),
		RegistrationToken:  cfg.GetRegistrationTokenExpiration(),
		ResetPasswordToken: cfg.GetResetTokenExpiration(),
	}
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), jwt.ClaimStrings(cfg.GetAudience()), expirations, revocations, logger)
}

// IssueOption customizes a single token issuance
type IssueOption func(*issueOptions)

type issueOptions struct {
	ttl      time.Duration
	issuedAt time.Time
}

// WithTTL overrides the default expiry. Overrides are honored only
// within policy limits: a request beyond the configured lifetime for
// the type is capped, never extended.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.ttl = ttl
	}
}

// WithIssuedAt overrides the issuance instant (useful for tests)
func WithIssuedAt(at time.Time) IssueOption {
	return func(o *issueOptions) {
		o.issuedAt = at
	}
}

// Issue signs a token of the given type carrying the payload claims.
// It returns the compact token string plus the decoded claim set.
func (ts *TokenServiceImpl) Issue(payload TokenPayload, typ TokenType, opts ...IssueOption) (string, *TokenClaims, error) {
	if !typ.Valid() {
		return "", nil, goerrors.New("unknown token type", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"type": string(typ)})
	}

	options := issueOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	ttl := ts.expirations[typ]
	if options.ttl > 0 && options.ttl < ttl {
		ttl = options.ttl
	}

	now := options.issuedAt
	if now.IsZero() {
		now = time.Now()
	}

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   payload.ID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
		UID:       payload.ID,
		RoleID:    payload.RoleID,
		RoleCode:  payload.RoleCode,
		RoleName:  payload.RoleName,
		Email:     payload.Email,
	}

	signed, err := ts.signClaims(claims)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

func (ts *TokenServiceImpl) signClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string against the expected
// type, returning structured claims. Failure is terminal for the
// request and reports only the category, never which check failed
// beyond it.
func (ts *TokenServiceImpl) Verify(raw string, typ TokenType) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			// claims decode even when validation fails on expiry; a
			// token presented at the wrong gate is a mismatch before
			// it is ever an expired one
			if token != nil {
				if claims, ok := token.Claims.(*TokenClaims); ok && claims.TokenType != typ {
					return nil, ErrTokenTypeMismatch
				}
			}
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenType != typ {
		return nil, ErrTokenTypeMismatch
	}

	if typ.SingleUse() && ts.revocations.IsRevoked(claims.RevocationKey()) {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RemoveToken marks a single use token consumed. The revocation entry
// lives exactly as long as the token would have; a concurrent
// duplicate observes ErrTokenRevoked.
func (ts *TokenServiceImpl) RemoveToken(claims *TokenClaims) error {
	if claims == nil {
		return goerrors.New("claims must not be nil", goerrors.CategoryBadInput)
	}

	if !claims.TokenType.SingleUse() {
		return goerrors.New("token type is not single use", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"type": string(claims.TokenType)})
	}

	ttl := time.Until(claims.Expires())
	if !ts.revocations.Revoke(claims.RevocationKey(), ttl) {
		return ErrTokenRevoked
	}

	return nil
}
