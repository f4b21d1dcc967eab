package accounts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Accounts() Accounts
	Roles() Roles
}

type mngr struct {
	db       *bun.DB
	users    Users
	accounts Accounts
	roles    Roles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		accounts: NewAccountsRepository(db),
		roles:    NewRolesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := m.db.PingContext(ctx); err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode).
			WithCode(ErrStoreUnavailable.Code)
	}

	if err := m.db.RunInTx(ctx, opts, f); err != nil {
		return classifyTxError(err)
	}

	return nil
}

// classifyTxError leaves errors the transaction body already enriched
// untouched so handler text codes survive the store boundary. Raw
// driver failures get tagged so callers can tell a flaky store apart
// from their own logic.
func classifyTxError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode).
			WithCode(ErrStoreUnavailable.Code)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "transaction failed").
		WithTextCode(TextCodeStoreTxFailed)
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Roles() Roles {
	return m.roles
}
