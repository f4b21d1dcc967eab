package accounts

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

func badRequest(ctx router.Context, logger Logger, err error, msg string) error {
	return RespondError(ctx, logger, goerrors.Wrap(err, goerrors.CategoryBadInput, msg).
		WithCode(goerrors.CodeBadRequest))
}

// UserController exposes the account lifecycle over HTTP. Every route
// runs its gate chain first: maintenance, then token verification,
// then ACL, and only then the handler.
type UserController struct {
	Logger      Logger
	Repo        RepositoryManager
	Auther      *Auther
	Tokens      TokenService
	Maintenance *MaintenanceSwitch
	ACL         *AccessControl

	SignupCmd          *SignupHandler
	ConfirmCmd         *ConfirmRegistrationHandler
	ChangePasswordCmd  *ChangePasswordHandler
	ForgotPasswordCmd  *InitializePasswordResetHandler
	ConfirmPasswordCmd *FinalizePasswordResetHandler
	AccountUpsertCmd   *UpsertAccountHandler
}

type UserControllerOption func(*UserController) *UserController

func NewUserController(opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in user controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in user controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in user controller...")
	}

	if c.Maintenance == nil {
		c.Maintenance = NewMaintenanceSwitch(false)
	}

	if c.ACL == nil {
		c.ACL = DefaultAccessControl()
	}

	return c
}

func WithControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Auther = auther
		return c
	}
}

func WithControllerTokens(tokens TokenService) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerMaintenance(ms *MaintenanceSwitch) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Maintenance = ms
		return c
	}
}

func WithControllerACL(acl *AccessControl) UserControllerOption {
	return func(c *UserController) *UserController {
		c.ACL = acl
		return c
	}
}

func WithControllerCommands(
	signup *SignupHandler,
	confirm *ConfirmRegistrationHandler,
	changePw *ChangePasswordHandler,
	forgotPw *InitializePasswordResetHandler,
	confirmPw *FinalizePasswordResetHandler,
	accountUpsert *UpsertAccountHandler,
) UserControllerOption {
	return func(c *UserController) *UserController {
		c.SignupCmd = signup
		c.ConfirmCmd = confirm
		c.ChangePasswordCmd = changePw
		c.ForgotPasswordCmd = forgotPw
		c.ConfirmPasswordCmd = confirmPw
		c.AccountUpsertCmd = accountUpsert
		return c
	}
}

// RegisterUserRoutes wires the operations surface with its gate
// chains. Signin sits behind the maintenance gate too, but the
// operation is allow listed so users can be told the system is down.
func RegisterUserRoutes[T any](app router.Router[T], c *UserController) {
	maintenance := func(op Operation) router.MiddlewareFunc {
		return MaintenanceGate(c.Maintenance, op, c.Logger)
	}
	verify := func(t TokenType) router.MiddlewareFunc {
		return RequireToken(c.Tokens, t, c.Logger)
	}
	writeAccess := RequirePermission(c.ACL, ResourceUserAccount, ActionWrite, c.Logger)

	app.Post("/users/signin", c.SigninPost, maintenance(OpSignin)).
		SetName("users.signin")

	app.Post("/users/signup", c.SignupPost, maintenance(OpSignup)).
		SetName("users.signup")

	app.Post("/users/confirm", c.ConfirmPost,
		maintenance(OpConfirm), verify(RegistrationToken),
	).SetName("users.confirm")

	app.Patch("/users/change_pw", c.ChangePasswordPatch,
		maintenance(OpChangePassword), verify(UserToken),
	).SetName("users.change-pw")

	app.Post("/users/forgot_pw", c.ForgotPasswordPost, maintenance(OpForgotPassword)).
		SetName("users.forgot-pw")

	app.Patch("/users/confirm_pw", c.ConfirmPasswordPatch,
		maintenance(OpConfirmPassword), verify(ResetPasswordToken),
	).SetName("users.confirm-pw")

	app.Put("/users/accounts", c.AccountUpsert,
		verify(UserToken), writeAccess,
	).SetName("users.accounts.put")

	app.Patch("/users/accounts", c.AccountUpsert,
		verify(UserToken), writeAccess,
	).SetName("users.accounts.patch")
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns whichever identifying field the client sent
func (r LoginRequest) GetIdentifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (c *UserController) SigninPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(ctx, c.Logger, err, "invalid signin payload")
	}

	if payload.GetIdentifier() == "" {
		return RespondError(ctx, c.Logger, ErrMismatchedHashAndPassword)
	}

	result, err := c.Auther.Login(ctx.Context(), payload.GetIdentifier(), payload.Password)
	if err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	return RespondData(ctx, http.StatusOK, "Sign in successful.", result)
}

func (c *UserController) SignupPost(ctx router.Context) error {
	payload := new(SignupMessage)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	var resp *SignupResponse
	payload.OnResponse = func(r *SignupResponse) { resp = r }

	if err := c.SignupCmd.Execute(ctx.Context(), *payload); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	var data any
	if resp != nil && resp.User != nil {
		u := *resp.User
		u.PasswordHash = ""
		data = &u
	}

	return RespondData(ctx, http.StatusCreated, "Sign up successful. Please confirm your account.", data)
}

// ConfirmPayload carries the base64 half of the confirmation link
type ConfirmPayload struct {
	Payload string `form:"base64" json:"base64"`
}

func (c *UserController) ConfirmPost(ctx router.Context) error {
	payload := new(ConfirmPayload)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	encoded := payload.Payload
	if encoded == "" {
		encoded = ctx.Param("base64", "")
	}

	claims, _ := GetRouterClaims(ctx, "")

	msg := ConfirmRegistrationMessage{
		Payload: encoded,
		Claims:  claims,
	}

	if err := c.ConfirmCmd.Execute(ctx.Context(), msg); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	return RespondData(ctx, http.StatusOK, "Account confirmed.", nil)
}

// PasswordPayload carries a new password
type PasswordPayload struct {
	Password string `form:"password" json:"password"`
}

func (c *UserController) ChangePasswordPatch(ctx router.Context) error {
	payload := new(PasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	claims, _ := GetRouterClaims(ctx, "")

	msg := ChangePasswordMessage{
		Password: payload.Password,
		Claims:   claims,
	}

	if err := c.ChangePasswordCmd.Execute(ctx.Context(), msg); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	return RespondData(ctx, http.StatusOK, "Password changed.", nil)
}

// ForgotPasswordPayload identifies the account to reset
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

func (c *UserController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	msg := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	if err := c.ForgotPasswordCmd.Execute(ctx.Context(), msg); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	return RespondData(ctx, http.StatusOK, "Password reset requested. Please check your email.", nil)
}

func (c *UserController) ConfirmPasswordPatch(ctx router.Context) error {
	payload := new(PasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	claims, _ := GetRouterClaims(ctx, "")

	msg := FinalizePasswordResetMessage{
		Password: payload.Password,
		Claims:   claims,
	}

	if err := c.ConfirmPasswordCmd.Execute(ctx.Context(), msg); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	return RespondData(ctx, http.StatusOK, "Password changed.", nil)
}

func (c *UserController) AccountUpsert(ctx router.Context) error {
	payload := new(UpsertAccountMessage)

	if err := ctx.Bind(payload); err != nil {
		return badRequest(ctx, c.Logger, err, "failed to parse request body")
	}

	claims, _ := GetRouterClaims(ctx, "")
	payload.Claims = claims

	var resp *UpsertAccountResponse
	payload.OnResponse = func(r *UpsertAccountResponse) { resp = r }

	if err := c.AccountUpsertCmd.Execute(ctx.Context(), *payload); err != nil {
		return RespondError(ctx, c.Logger, err)
	}

	var data any
	if resp != nil {
		data = resp.View
	}

	return RespondData(ctx, http.StatusOK, "Account saved.", data)
}
