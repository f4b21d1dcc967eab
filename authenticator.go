package accounts

import (
	"context"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AuthResult is the envelope returned to a successful signin: the
// session token, its decoded claims, and the combined user and
// account view.
type AuthResult struct {
	Token  string           `json:"token"`
	Claims *TokenClaims     `json:"-"`
	View   *UserAccountView `json:"view"`
}

// Auther drives the signin flow: credential verification, the login
// ACL check, then session token issuance.
type Auther struct {
	provider IdentityProvider
	repo     RepositoryManager
	tokens   TokenService
	acl      *AccessControl
	activity ActivitySink
	logger   Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, repo RepositoryManager, tokens TokenService, acl *AccessControl) *Auther {
	if acl == nil {
		acl = DefaultAccessControl()
	}

	return &Auther{
		provider: provider,
		repo:     repo,
		tokens:   tokens,
		acl:      acl,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies credentials, runs the login ACL check and issues a
// session token. Credential failures are uniform: a wrong password and
// an unknown identifier produce the same error.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrMismatchedHashAndPassword.Error(),
		})
		return nil, ErrMismatchedHashAndPassword
	}

	// post-credential gate: the role must still be able to read its
	// own account before a session is established
	if err := s.acl.LoginCheck(identity, ResourceUserAccount, ActionRead); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	token, claims, err := s.tokens.Issue(TokenPayload{
		ID:       identity.ID(),
		RoleID:   identity.RoleID(),
		RoleCode: identity.RoleCode(),
		RoleName: identity.RoleName(),
		Email:    identity.Email(),
	}, UserToken)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	view, err := s.loadView(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return &AuthResult{
		Token:  token,
		Claims: claims,
		View:   view,
	}, nil
}

func (s *Auther) loadView(ctx context.Context, identity Identity) (*UserAccountView, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, identity.ID(), ActiveUsers(), WithRole())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user after login")
	}

	view := &UserAccountView{User: user}

	account, err := s.repo.Accounts().GetByUserID(ctx, user.ID)
	if err == nil {
		view.Account = account
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account after login")
	}

	return view.Sanitize(), nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activity)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}
