package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_USER_STATE"
)

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from a deleted user.
var ErrTerminalState = goerrors.New("user state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// UserState is the derived lifecycle position of a user row.
type UserState string

const (
	// StateUnconfirmed covers rows created by signup that have not
	// presented a registration token yet.
	StateUnconfirmed UserState = "unconfirmed"
	// StateActive covers confirmed users that may authenticate.
	StateActive UserState = "active"
	// StateDeleted covers soft deleted rows. Terminal.
	StateDeleted UserState = "deleted"
)

// lifecycle transitions: signup creates unconfirmed, confirmation
// activates, removal soft deletes from either state.
var userTransitions = map[UserState]map[UserState]struct{}{
	StateUnconfirmed: {
		StateActive:  {},
		StateDeleted: {},
	},
	StateActive: {
		StateDeleted: {},
	},
}

// StateOf derives the lifecycle state from the row flags.
func StateOf(user *User) UserState {
	if user == nil || user.DeletedAt != nil {
		return StateDeleted
	}
	if !user.Activated {
		return StateUnconfirmed
	}
	return StateActive
}

// ValidateTransition rejects state changes outside the lifecycle
// graph. Same-state is a no-op, moving a deleted user is terminal.
func ValidateTransition(from, to UserState) error {
	if from == to {
		return nil
	}

	if from == StateDeleted {
		return transitionError(ErrTerminalState, from, to)
	}

	targets, ok := userTransitions[from]
	if !ok {
		return transitionError(ErrInvalidTransition, from, to)
	}

	if _, ok := targets[to]; !ok {
		return transitionError(ErrInvalidTransition, from, to)
	}

	return nil
}

func transitionError(base *goerrors.Error, from, to UserState) *goerrors.Error {
	return goerrors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithCode(base.Code).
		WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(to),
		})
}
