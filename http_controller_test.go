package accounts_test

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, repo *MockRepositoryManager, provider *MockIdentityProvider, tokens *MockTokenService, opts ...accounts.UserControllerOption) *accounts.UserController {
	t.Helper()

	links := accounts.NewLinkBuilder("https://api.example.com", "/users/confirmation/")
	templates := accounts.MailTemplates{AppName: "ExampleApp", From: "no-reply@example.com"}

	auther := accounts.NewAuthenticator(provider, repo, tokens, nil).WithLogger(testLogger{})

	base := []accounts.UserControllerOption{
		accounts.WithControllerLogger(testLogger{}),
		accounts.WithControllerRepo(repo),
		accounts.WithControllerAuther(auther),
		accounts.WithControllerTokens(tokens),
		accounts.WithControllerCommands(
			accounts.NewSignupHandler(repo, tokens, links, templates).WithLogger(testLogger{}),
			accounts.NewConfirmRegistrationHandler(repo, tokens).WithLogger(testLogger{}),
			accounts.NewChangePasswordHandler(repo).WithLogger(testLogger{}),
			accounts.NewInitializePasswordResetHandler(repo, tokens, links, templates).WithLogger(testLogger{}),
			accounts.NewFinalizePasswordResetHandler(repo, tokens, templates).WithLogger(testLogger{}),
			accounts.NewUpsertAccountHandler(repo).WithLogger(testLogger{}),
		),
	}

	return accounts.NewUserController(append(base, opts...)...)
}

func bindPayload[T any](payload T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		target := args.Get(0).(*T)
		*target = payload
	}
}

func TestSigninPost(t *testing.T) {
	userID := uuid.New()
	roleID := uuid.New()

	t.Run("responds with the token and view", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		accountsRepo := &MockAccounts{}
		provider := &MockIdentityProvider{}
		tokens := &MockTokenService{}

		provider.On("VerifyIdentity", mock.Anything, "pepe", "some_secret_word").
			Return(memberIdentity(userID, roleID), nil).Once()
		tokens.On("Issue", mock.Anything, accounts.UserToken, mock.Anything).
			Return("signed-session-token", &accounts.TokenClaims{}, nil).Once()
		repo.On("Users").Return(users).Once()
		repo.On("Accounts").Return(accountsRepo).Once()
		users.On("GetByIdentifier", mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Username: "pepe", Activated: true}, nil).Once()
		accountsRepo.On("GetByUserID", mock.Anything, userID).
			Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

		controller := newTestController(t, repo, provider, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.LoginRequest{Username: "pepe", Password: "some_secret_word"})).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusOK, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			result, ok := resp.Data.(*accounts.AuthResult)
			return resp.Success &&
				resp.Message == "Sign in successful." &&
				ok && result.Token == "signed-session-token"
		})).Return(nil).Once()

		require.NoError(t, controller.SigninPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("bad credentials come back as 401", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		provider := &MockIdentityProvider{}
		tokens := &MockTokenService{}

		provider.On("VerifyIdentity", mock.Anything, "pepe", "wrong_password").
			Return(nil, accounts.ErrMismatchedHashAndPassword).Once()

		controller := newTestController(t, repo, provider, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.LoginRequest{Username: "pepe", Password: "wrong_password"})).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusUnauthorized, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			return !resp.Success
		})).Return(nil).Once()

		require.NoError(t, controller.SigninPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("a missing identifier never hits the provider", func(t *testing.T) {
		provider := &MockIdentityProvider{}
		controller := newTestController(t, &MockRepositoryManager{}, provider, &MockTokenService{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.LoginRequest{Password: "some_secret_word"})).Once()
		ctx.On("JSON", http.StatusUnauthorized, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.SigninPost(ctx))
		provider.AssertNotCalled(t, "VerifyIdentity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a missing password is rejected", func(t *testing.T) {
		controller := newTestController(t, &MockRepositoryManager{}, &MockIdentityProvider{}, &MockTokenService{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.LoginRequest{Username: "pepe"})).Once()
		ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.SigninPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("an unparsable body is a bad request", func(t *testing.T) {
		controller := newTestController(t, &MockRepositoryManager{}, &MockIdentityProvider{}, &MockTokenService{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(assert.AnError).Once()
		ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.SigninPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestSignupPost(t *testing.T) {
	userID := uuid.New()

	t.Run("responds created and never leaks the hash", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		roles := &MockRoles{}
		tokens := &MockTokenService{}

		role := &accounts.Role{ID: uuid.New(), Code: accounts.RoleMember, Name: "Member"}

		repo.On("Roles").Return(roles).Once()
		roles.On("GetByCode", mock.Anything, accounts.RoleMember).Return(role, nil).Once()
		repo.On("Users").Return(users).Once()
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).Run(runTxFn).Once()
		users.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
			Return(&accounts.User{
				ID:           userID,
				Email:        "pepe.rone@example.com",
				Username:     "pepe",
				PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
				RoleID:       role.ID,
			}, nil).Once()
		tokens.On("Issue", mock.Anything, accounts.RegistrationToken, mock.Anything).
			Return("tok", &accounts.TokenClaims{}, nil).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.SignupMessage{
				Email:    "pepe.rone@example.com",
				Username: "pepe",
				Password: "some_secret_word",
			})).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusCreated, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			user, ok := resp.Data.(*accounts.User)
			return resp.Success && ok &&
				user.Username == "pepe" &&
				user.PasswordHash == ""
		})).Return(nil).Once()

		require.NoError(t, controller.SignupPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("an invalid payload is rejected", func(t *testing.T) {
		controller := newTestController(t, &MockRepositoryManager{}, &MockIdentityProvider{}, &MockTokenService{})

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.SignupMessage{Email: "nope"})).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.SignupPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestConfirmPost(t *testing.T) {
	userID := uuid.New()
	email := "pepe.rone@example.com"

	t.Run("confirms using the body payload and verified claims", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		tokens := &MockTokenService{}

		claims := registrationClaims(userID.String(), email)

		repo.On("Users").Return(users).Once()
		users.On("GetByIdentifier", mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Email: email}, nil).Once()
		users.On("Activate", mock.Anything, userID).Return(nil).Once()
		tokens.On("RemoveToken", claims).Return(nil).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.ConfirmPayload{Payload: encodedLink(t, email, "")})).Once()
		ctx.On("Locals", accounts.ClaimsLocalsKey).Return(claims)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusOK, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			return resp.Success && resp.Message == "Account confirmed."
		})).Return(nil).Once()

		require.NoError(t, controller.ConfirmPost(ctx))
		ctx.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("falls back to the route param", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		tokens := &MockTokenService{}

		claims := registrationClaims(userID.String(), email)

		repo.On("Users").Return(users).Once()
		users.On("GetByIdentifier", mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Email: email}, nil).Once()
		users.On("Activate", mock.Anything, userID).Return(nil).Once()
		tokens.On("RemoveToken", claims).Return(nil).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.ConfirmPayload{})).Once()
		ctx.On("Param", "base64", "").Return(encodedLink(t, email, "")).Once()
		ctx.On("Locals", accounts.ClaimsLocalsKey).Return(claims)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusOK, mock.Anything).Return(nil).Once()

		require.NoError(t, controller.ConfirmPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("a reused link is rejected", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		tokens := &MockTokenService{}

		claims := registrationClaims(userID.String(), email)

		repo.On("Users").Return(users).Once()
		users.On("GetByIdentifier", mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Email: email, Activated: true}, nil).Once()
		users.On("Activate", mock.Anything, userID).Return(accounts.ErrLinkExpired).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.ConfirmPayload{Payload: encodedLink(t, email, "")})).Once()
		ctx.On("Locals", accounts.ClaimsLocalsKey).Return(claims)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusBadRequest, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			return !resp.Success
		})).Return(nil).Once()

		require.NoError(t, controller.ConfirmPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestChangePasswordPatch(t *testing.T) {
	userID := uuid.New()

	t.Run("changes the password for the session user", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		tokens := &MockTokenService{}

		claims := sessionClaims(userID.String())

		repo.On("Users").Return(users).Twice()
		users.On("GetByIdentifier", mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Activated: true}, nil).Once()
		users.On("UpdatePassword", mock.Anything, userID, mock.Anything).Return(nil).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.PasswordPayload{Password: "brand_new_password"})).Once()
		ctx.On("Locals", accounts.ClaimsLocalsKey).Return(claims)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusOK, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			return resp.Success && resp.Message == "Password changed."
		})).Return(nil).Once()

		require.NoError(t, controller.ChangePasswordPatch(ctx))
		ctx.AssertExpectations(t)
		users.AssertExpectations(t)
	})
}

func TestForgotPasswordPost(t *testing.T) {
	t.Run("a denial still responds with an error envelope", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		tokens := &MockTokenService{}

		repo.On("Users").Return(users).Once()
		users.On("GetByIdentifier", mock.Anything, "stranger@example.com", mock.Anything).
			Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.ForgotPasswordPayload{Email: "stranger@example.com"})).Once()
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusBadRequest, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			return !resp.Success
		})).Return(nil).Once()

		require.NoError(t, controller.ForgotPasswordPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestAccountUpsertHandlerRoute(t *testing.T) {
	userID := uuid.New()

	t.Run("saves the profile for the session user", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		accountsRepo := &MockAccounts{}
		tokens := &MockTokenService{}

		claims := sessionClaims(userID.String())
		stored := &accounts.Account{UserID: userID, FirstName: "Pepe"}

		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).Run(runTxFn).Once()
		repo.On("Users").Return(users).Once()
		repo.On("Accounts").Return(accountsRepo).Twice()
		users.On("GetByIdentifierTx", mock.Anything, mock.Anything, userID.String(), mock.Anything).
			Return(&accounts.User{ID: userID, Activated: true}, nil).Once()
		accountsRepo.On("UpsertByUserIDTx", mock.Anything, mock.Anything, mock.Anything).
			Return(stored, nil).Once()
		accountsRepo.On("GetByUserIDTx", mock.Anything, mock.Anything, userID).
			Return(stored, nil).Once()

		controller := newTestController(t, repo, &MockIdentityProvider{}, tokens)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).
			Run(bindPayload(accounts.UpsertAccountMessage{FirstName: "Pepe"})).Once()
		ctx.On("Locals", accounts.ClaimsLocalsKey).Return(claims)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", http.StatusOK, mock.MatchedBy(func(resp accounts.APIResponse) bool {
			view, ok := resp.Data.(*accounts.UserAccountView)
			return resp.Success && ok && view.Account.FirstName == "Pepe"
		})).Return(nil).Once()

		require.NoError(t, controller.AccountUpsert(ctx))
		ctx.AssertExpectations(t)
	})
}
