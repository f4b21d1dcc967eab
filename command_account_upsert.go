package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// DefaultPhoneRegion is the region used to parse mobile numbers that
// are not in international format.
var DefaultPhoneRegion = "US"

type UpsertAccountMessage struct {
	Prefix     string `json:"prefix,omitempty"`
	Suffix     string `json:"suffix,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Birthdate  string `json:"birthdate,omitempty" example:"1990-04-21" doc:"ISO date."`
	Title      string `json:"title,omitempty"`
	Position   string `json:"position,omitempty"`
	Location   string `json:"location,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Mobile     string `json:"mobile,omitempty" example:"+14155552671"`
	Website    string `json:"website,omitempty"`
	Claims     *TokenClaims
	OnResponse func(resp *UpsertAccountResponse)
}

func (m UpsertAccountMessage) Type() string { return "user.account_upsert" }

// Validate will run validation rules
func (m UpsertAccountMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.FirstName, validation.Length(1, 200)),
		validation.Field(&m.LastName, validation.Length(1, 200)),
		validation.Field(&m.Birthdate, validation.Date("2006-01-02")),
		validation.Field(&m.Avatar, is.URL),
		validation.Field(&m.Website, is.URL),
		validation.Field(&m.Mobile, validation.By(ValidateMobileNumber)),
	)
}

// ValidateMobileNumber accepts numbers phonenumbers can parse and
// considers valid for their region. Empty is fine, the field is
// optional.
func ValidateMobileNumber(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return err
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("not a valid phone number", goerrors.CategoryValidation)
	}

	return nil
}

type UpsertAccountResponse struct {
	View    *UserAccountView
	Success bool
}

// UpsertAccountHandler creates or updates the profile row for the
// authenticated user, then reads back the combined user and account
// view inside the same transaction.
type UpsertAccountHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

func NewUpsertAccountHandler(repo RepositoryManager) *UpsertAccountHandler {
	return &UpsertAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *UpsertAccountHandler) WithActivitySink(sink ActivitySink) *UpsertAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *UpsertAccountHandler) WithLogger(logger Logger) *UpsertAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpsertAccountHandler) Execute(ctx context.Context, event UpsertAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account upsert",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpsertAccountHandler) execute(ctx context.Context, event UpsertAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account payload")
	}

	if event.Claims == nil || event.Claims.TokenType != UserToken {
		return ErrTokenTypeMismatch
	}

	view := &UserAccountView{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Claims.UserID(), ActiveUsers(), WithRole())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotActive
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for account upsert")
		}

		record := &Account{
			UserID:     user.ID,
			Prefix:     event.Prefix,
			Suffix:     event.Suffix,
			FirstName:  event.FirstName,
			MiddleName: event.MiddleName,
			LastName:   event.LastName,
			Gender:     event.Gender,
			Birthdate:  event.Birthdate,
			Title:      event.Title,
			Position:   event.Position,
			Location:   event.Location,
			Avatar:     event.Avatar,
			Mobile:     event.Mobile,
			Website:    event.Website,
		}

		if _, err := h.repo.Accounts().UpsertByUserIDTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upsert account")
		}

		account, err := h.repo.Accounts().GetByUserIDTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read back account")
		}

		view.User = user
		view.Account = account
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account upsert transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&UpsertAccountResponse{
			View:    view.Sanitize(),
			Success: true,
		})
	}

	return nil
}
