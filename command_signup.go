package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email, unique."`
	Username   string `json:"username" example:"pepe" doc:"Account username, unique."`
	Password   string `json:"password" example:"some_secret_word" doc:"Cleartext password."`
	RoleCode   string `json:"role_code,omitempty" example:"member" doc:"Requested role, defaults to member."`
	OnResponse func(resp *SignupResponse)
}

func (m SignupMessage) Type() string { return "user.signup" }

// Validate will run validation rules
func (m SignupMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&m.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&m.RoleCode, validation.In(RoleGuest, RoleMember, RoleAdmin, RoleOwner)),
	)
}

type SignupResponse struct {
	User    *User
	Success bool
}

// SignupHandler creates an unconfirmed user inside a transaction and
// mails the confirmation link. In await delivery mode a mail failure
// rolls the whole signup back so no user row exists without a usable
// link.
type SignupHandler struct {
	repo      RepositoryManager
	tokens    TokenService
	hasher    PasswordHasher
	links     *LinkBuilder
	templates MailTemplates
	notifier  Notifier
	mode      DeliveryMode
	activity  ActivitySink
	logger    Logger
}

func NewSignupHandler(repo RepositoryManager, tokens TokenService, links *LinkBuilder, templates MailTemplates) *SignupHandler {
	return &SignupHandler{
		repo:      repo,
		tokens:    tokens,
		hasher:    NewBcryptHasher(0),
		links:     links,
		templates: templates,
		notifier:  NoopNotifier{},
		mode:      DeliveryAwait,
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}
}

func (h *SignupHandler) WithHasher(hasher PasswordHasher) *SignupHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *SignupHandler) WithNotifier(notifier Notifier, mode DeliveryMode) *SignupHandler {
	if notifier != nil {
		h.notifier = notifier
	}
	h.mode = mode
	return h
}

func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload")
	}

	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	roleCode := event.RoleCode
	if roleCode == "" {
		roleCode = DefaultRoleCode
	}

	role, err := h.repo.Roles().GetByCode(ctx, roleCode)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("unknown role", goerrors.CategoryValidation).
				WithMetadata(map[string]any{"role_code": roleCode})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve signup role")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = event.Email
		user.Username = event.Username
		user.PasswordHash = hash
		user.RoleID = role.ID
		user.Activated = false

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user").
					WithTextCode(TextCodeDuplicateUser)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
		}

		token, _, err := h.tokens.Issue(TokenPayload{
			ID:     user.ID.String(),
			RoleID: role.ID.String(),
			Email:  user.Email,
		}, RegistrationToken)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue registration token")
		}

		link, err := h.links.Build(LinkPayload{
			Email:  user.Email,
			RoleID: role.ID.String(),
		}, token)
		if err != nil {
			return err
		}

		msg := h.templates.SignupConfirmation(user.Email, link)
		if err := Deliver(ctx, h.notifier, h.mode, h.logger, msg); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver confirmation mail").
				WithTextCode(TextCodeNotifierFailed)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{
			User:    user,
			Success: true,
		})
	}

	return nil
}

func (h *SignupHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventSignup,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		ToState:    StateUnconfirmed,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during signup: %v", err)
	}
}
