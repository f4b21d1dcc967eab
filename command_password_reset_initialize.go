package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (m InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// Validate will run validation rules
func (m InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

type InitializePasswordResetResponse struct {
	Success bool
}

// InitializePasswordResetHandler issues a reset token and mails the
// reset link. Failures never reveal whether the email belongs to an
// account: missing, deleted and unconfirmed users all surface the same
// ErrPasswordResetDenied.
type InitializePasswordResetHandler struct {
	repo      RepositoryManager
	tokens    TokenService
	links     *LinkBuilder
	templates MailTemplates
	notifier  Notifier
	mode      DeliveryMode
	activity  ActivitySink
	logger    Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService, links *LinkBuilder, templates MailTemplates) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:      repo,
		tokens:    tokens,
		links:     links,
		templates: templates,
		notifier:  NoopNotifier{},
		mode:      DeliveryAwait,
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithNotifier(notifier Notifier, mode DeliveryMode) *InitializePasswordResetHandler {
	if notifier != nil {
		h.notifier = notifier
	}
	h.mode = mode
	return h
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Email, ActiveUsers())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrPasswordResetDenied
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, _, err := h.tokens.Issue(TokenPayload{
		ID:     user.ID.String(),
		RoleID: user.RoleID.String(),
		Email:  user.Email,
	}, ResetPasswordToken)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
	}

	link, err := h.links.Build(LinkPayload{
		Email:  user.Email,
		RoleID: user.RoleID.String(),
	}, token)
	if err != nil {
		return err
	}

	msg := h.templates.PasswordReset(user.Email, link)
	if err := Deliver(ctx, h.notifier, h.mode, h.logger, msg); err != nil {
		h.logger.Error("failed to deliver reset mail to %s: %v", user.Email, err)
		return ErrPasswordResetDenied
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Success: true})
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
