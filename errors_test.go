package accounts_test

import (
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	for name, tc := range map[string]struct {
		err      error
		expected bool
	}{
		"sqlite": {
			err:      errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"),
			expected: true,
		},
		"postgres": {
			err:      errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE=23505)`),
			expected: true,
		},
		"wrapped": {
			err:      errors.New("insert users: UNIQUE constraint failed: users.username"),
			expected: true,
		},
		"not null violation": {
			err:      errors.New("NOT NULL constraint failed: users.email"),
			expected: false,
		},
		"connection failure": {
			err:      errors.New("driver: bad connection"),
			expected: false,
		},
		"nil": {
			err:      nil,
			expected: false,
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, accounts.IsUniqueViolation(tc.err))
		})
	}
}
