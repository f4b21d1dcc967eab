package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Accounts interface {
	repository.Repository[*Account]

	GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Account, error)

	// UpsertByUserID updates the profile row for the user when one
	// exists and inserts it otherwise.
	UpsertByUserID(ctx context.Context, record *Account) (*Account, error)
	UpsertByUserIDTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
}

type accountsRepo struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &accountsRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *accountsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return r.GetByUserIDTx(ctx, r.db, userID)
}

func (r *accountsRepo) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *accountsRepo) UpsertByUserID(ctx context.Context, record *Account) (*Account, error) {
	return r.UpsertByUserIDTx(ctx, r.db, record)
}

func (r *accountsRepo) UpsertByUserIDTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	existing, err := r.GetByUserIDTx(ctx, tx, record.UserID)
	if err == nil {
		record.ID = existing.ID
		return r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(existing.ID.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return r.Repository.CreateTx(ctx, tx, record)
}
