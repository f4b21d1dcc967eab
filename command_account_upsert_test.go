package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateMobileNumber(t *testing.T) {
	t.Run("empty is fine", func(t *testing.T) {
		assert.NoError(t, accounts.ValidateMobileNumber(""))
	})

	t.Run("accepts an international number", func(t *testing.T) {
		assert.NoError(t, accounts.ValidateMobileNumber("+14155552671"))
	})

	t.Run("accepts a national number in the default region", func(t *testing.T) {
		assert.NoError(t, accounts.ValidateMobileNumber("(415) 555-2671"))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		assert.Error(t, accounts.ValidateMobileNumber("phone-home"))
	})

	t.Run("rejects an impossible number", func(t *testing.T) {
		assert.Error(t, accounts.ValidateMobileNumber("+1999999999999999"))
	})
}

func TestUpsertAccountMessageValidate(t *testing.T) {
	t.Run("accepts a full profile", func(t *testing.T) {
		msg := accounts.UpsertAccountMessage{
			FirstName: "Pepe",
			LastName:  "Rone",
			Birthdate: "1990-04-21",
			Avatar:    "https://cdn.example.com/pepe.png",
			Website:   "https://pepe.example.com",
			Mobile:    "+14155552671",
		}
		require.NoError(t, msg.Validate())
	})

	t.Run("rejects bad fields", func(t *testing.T) {
		for name, msg := range map[string]accounts.UpsertAccountMessage{
			"bad birthdate": {Birthdate: "21/04/1990"},
			"bad avatar":    {Avatar: "not a url"},
			"bad website":   {Website: "not a url"},
			"bad mobile":    {Mobile: "phone-home"},
		} {
			t.Run(name, func(t *testing.T) {
				require.Error(t, msg.Validate())
			})
		}
	})
}

func TestUpsertAccountHandler(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("writes the profile and returns the sanitized view", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		accountsRepo := &MockAccounts{}

		user := &accounts.User{
			ID:           userID,
			Email:        "pepe.rone@example.com",
			Username:     "pepe",
			PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
			Activated:    true,
		}
		stored := &accounts.Account{UserID: userID, FirstName: "Pepe", LastName: "Rone"}

		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).
			Run(runTxFn).Once()
		repo.On("Users").Return(users).Once()
		repo.On("Accounts").Return(accountsRepo).Twice()

		users.On("GetByIdentifierTx", mock.Anything, mock.Anything, userID.String(), mock.Anything).
			Return(user, nil).Once()
		accountsRepo.On("UpsertByUserIDTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a *accounts.Account) bool {
			return a.UserID == userID &&
				a.FirstName == "Pepe" &&
				a.LastName == "Rone" &&
				a.Mobile == "+14155552671"
		})).Return(stored, nil).Once()
		accountsRepo.On("GetByUserIDTx", mock.Anything, mock.Anything, userID).
			Return(stored, nil).Once()

		handler := accounts.NewUpsertAccountHandler(repo).WithLogger(testLogger{})

		var resp *accounts.UpsertAccountResponse
		err := handler.Execute(ctx, accounts.UpsertAccountMessage{
			FirstName:  "Pepe",
			LastName:   "Rone",
			Mobile:     "+14155552671",
			Claims:     sessionClaims(userID.String()),
			OnResponse: func(r *accounts.UpsertAccountResponse) { resp = r },
		})
		require.NoError(t, err)

		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.View)
		require.NotNil(t, resp.View.User)
		assert.Empty(t, resp.View.User.PasswordHash)
		assert.Equal(t, "pepe", resp.View.User.Username)
		require.NotNil(t, resp.View.Account)
		assert.Equal(t, "Pepe", resp.View.Account.FirstName)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
		accountsRepo.AssertExpectations(t)
	})

	t.Run("requires a session token", func(t *testing.T) {
		handler := accounts.NewUpsertAccountHandler(&MockRepositoryManager{})

		err := handler.Execute(ctx, accounts.UpsertAccountMessage{
			FirstName: "Pepe",
			Claims:    &accounts.TokenClaims{TokenType: accounts.RegistrationToken},
		})
		assert.ErrorIs(t, err, accounts.ErrTokenTypeMismatch)
	})

	t.Run("deactivated user cannot edit their profile", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}

		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(accounts.ErrUserNotActive).
			Run(runTxFn).Once()
		repo.On("Users").Return(users).Once()
		users.On("GetByIdentifierTx", mock.Anything, mock.Anything, userID.String(), mock.Anything).
			Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

		handler := accounts.NewUpsertAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, accounts.UpsertAccountMessage{
			FirstName: "Pepe",
			Claims:    sessionClaims(userID.String()),
		})
		assert.ErrorIs(t, err, accounts.ErrUserNotActive)
	})

	t.Run("rejects an invalid payload before the transaction", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		handler := accounts.NewUpsertAccountHandler(repo)

		err := handler.Execute(ctx, accounts.UpsertAccountMessage{
			Birthdate: "April 21st",
			Claims:    sessionClaims(userID.String()),
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
		repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
	})
}
