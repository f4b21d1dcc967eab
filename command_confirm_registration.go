package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type ConfirmRegistrationMessage struct {
	Payload    string `json:"base64" example:"eyJlbWFpbCI6ImFAeC5jb20ifQ==" doc:"Base64 payload carried by the confirmation link."`
	Claims     *TokenClaims
	OnResponse func(resp *ConfirmRegistrationResponse)
}

func (m ConfirmRegistrationMessage) Type() string { return "user.confirm_registration" }

// Validate will run validation rules
func (m ConfirmRegistrationMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Payload, validation.Required),
	)
}

type ConfirmRegistrationResponse struct {
	UserID  uuid.UUID
	Success bool
}

// ConfirmRegistrationHandler activates an unconfirmed user. The
// registration token is verified upstream; here the link payload email
// must match the token's claimed email, and the activation update must
// touch exactly one row.
type ConfirmRegistrationHandler struct {
	repo     RepositoryManager
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

func NewConfirmRegistrationHandler(repo RepositoryManager, tokens TokenService) *ConfirmRegistrationHandler {
	return &ConfirmRegistrationHandler{
		repo:     repo,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *ConfirmRegistrationHandler) WithActivitySink(sink ActivitySink) *ConfirmRegistrationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *ConfirmRegistrationHandler) WithLogger(logger Logger) *ConfirmRegistrationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmRegistrationHandler) Execute(ctx context.Context, event ConfirmRegistrationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmRegistrationHandler) execute(ctx context.Context, event ConfirmRegistrationMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid confirmation payload")
	}

	if event.Claims == nil || event.Claims.TokenType != RegistrationToken {
		return ErrTokenTypeMismatch
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	decoded, err := DecodeLinkPayload(event.Payload)
	if err != nil {
		return err
	}

	if decoded.Email == "" || decoded.Email != event.Claims.Email {
		return ErrMismatchedPayload
	}

	userID, err := uuid.Parse(event.Claims.UserID())
	if err != nil {
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	usersRepo := h.repo.Users()

	// a missing row is indistinguishable from a consumed link on purpose
	user, err := usersRepo.GetByIdentifier(ctx, userID.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrLinkExpired
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for confirmation")
	}

	from := StateOf(user)
	if err := ValidateTransition(from, StateActive); err != nil {
		return err
	}

	if err := usersRepo.Activate(ctx, userID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user")
	}

	// the activation update is the authoritative exactly-once gate,
	// revocation just closes the window for reuse before expiry
	if err := h.tokens.RemoveToken(event.Claims); err != nil && !goerrors.Is(err, ErrTokenRevoked) {
		h.logger.Warn("failed to revoke registration token for %s: %v", userID, err)
	}

	h.recordActivity(ctx, userID, from)

	if event.OnResponse != nil {
		event.OnResponse(&ConfirmRegistrationResponse{
			UserID:  userID,
			Success: true,
		})
	}

	return nil
}

func (h *ConfirmRegistrationHandler) recordActivity(ctx context.Context, userID uuid.UUID, from UserState) {
	event := ActivityEvent{
		EventType:  ActivityEventConfirmation,
		Actor:      ActorRef{ID: userID.String(), Type: "user"},
		UserID:     userID.String(),
		FromState:  from,
		ToState:    StateActive,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during confirmation: %v", err)
	}
}
