package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Password   string `json:"password" example:"some_secret_word" doc:"New cleartext password."`
	Claims     *TokenClaims
	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (m FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// Validate will run validation rules
func (m FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Password, validation.Required, validation.Length(8, 100)),
	)
}

type FinalizePasswordResetResponse struct {
	Success bool
}

// FinalizePasswordResetHandler consumes a reset token: it writes the
// new hash, then revokes the token, then sends the confirmation mail.
// Revocation sits before the mail on purpose, a concurrent replay of
// the same token must lose before any observable side effect.
type FinalizePasswordResetHandler struct {
	repo      RepositoryManager
	tokens    TokenService
	hasher    PasswordHasher
	templates MailTemplates
	notifier  Notifier
	mode      DeliveryMode
	activity  ActivitySink
	logger    Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens TokenService, templates MailTemplates) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:      repo,
		tokens:    tokens,
		hasher:    NewBcryptHasher(0),
		templates: templates,
		notifier:  NoopNotifier{},
		mode:      DeliveryAwait,
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithHasher(hasher PasswordHasher) *FinalizePasswordResetHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *FinalizePasswordResetHandler) WithNotifier(notifier Notifier, mode DeliveryMode) *FinalizePasswordResetHandler {
	if notifier != nil {
		h.notifier = notifier
	}
	h.mode = mode
	return h
}

func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	if event.Claims == nil || event.Claims.TokenType != ResetPasswordToken {
		return ErrTokenTypeMismatch
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Claims.UserID(), ActiveUsers())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUserNotActive
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid new password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := h.repo.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
	}

	if err := h.tokens.RemoveToken(event.Claims); err != nil {
		return err
	}

	msg := h.templates.PasswordResetConfirmation(user.Email)
	if err := Deliver(ctx, h.notifier, h.mode, h.logger, msg); err != nil {
		// the password is already changed and the token consumed;
		// surface the delivery failure without undoing either
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver password change confirmation").
			WithTextCode(TextCodeNotifierFailed)
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{Success: true})
	}

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
