package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	hasher := accounts.NewBcryptHasher(0)

	t.Run("hash and compare round trip", func(t *testing.T) {
		hash, err := hasher.HashPassword("some_secret_word")
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		assert.NotEqual(t, "some_secret_word", hash)

		require.NoError(t, hasher.ComparePasswordAndHash("some_secret_word", hash))
	})

	t.Run("wrong password fails uniformly", func(t *testing.T) {
		hash, err := hasher.HashPassword("some_secret_word")
		require.NoError(t, err)

		err = hasher.ComparePasswordAndHash("wrong_password", hash)
		assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := hasher.HashPassword("")
		assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
	})

	t.Run("hashes are salted", func(t *testing.T) {
		h1, err := hasher.HashPassword("some_secret_word")
		require.NoError(t, err)
		h2, err := hasher.HashPassword("some_secret_word")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})
}

func TestHashPasswordHelpers(t *testing.T) {
	hash, err := accounts.HashPassword("some_secret_word")
	require.NoError(t, err)
	require.NoError(t, accounts.ComparePasswordAndHash("some_secret_word", hash))
}

func TestRandomPasswordHash(t *testing.T) {
	hash := accounts.RandomPasswordHash()
	require.NotEmpty(t, hash)

	// nobody should be able to log in with a guessable password
	err := accounts.ComparePasswordAndHash("password", hash)
	assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
}
