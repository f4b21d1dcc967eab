package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultRoleCode is the role assigned to signups that do not request
// one explicitly.
var DefaultRoleCode = RoleMember

type Roles interface {
	repository.Repository[*Role]

	GetByCode(ctx context.Context, code RoleCode) (*Role, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code RoleCode) (*Role, error)
	GetDefault(ctx context.Context) (*Role, error)
}

type rolesRepo struct {
	repository.Repository[*Role]
	db *bun.DB
}

var _ Roles = (*rolesRepo)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &rolesRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *rolesRepo) GetByCode(ctx context.Context, code RoleCode) (*Role, error) {
	return r.GetByCodeTx(ctx, r.db, code)
}

func (r *rolesRepo) GetByCodeTx(ctx context.Context, tx bun.IDB, code RoleCode) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"code": string(code),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *rolesRepo) GetDefault(ctx context.Context) (*Role, error) {
	return r.GetByCode(ctx, DefaultRoleCode)
}
