package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the tenant-scoped role directory. Resolve applies the
// priority-ordered fallback used everywhere a role is attached to a
// member: explicit id, then the tenant "Member" role, then any
// non-"Owner" role. A nil result with nil error means "no role, use
// the store default".
type Roles interface {
	GetByID(ctx context.Context, tenantID, roleID uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*Role, error)
	Resolve(ctx context.Context, tenantID uuid.UUID, roleID *uuid.UUID) (*Role, error)
	ResolveTx(ctx context.Context, tx bun.IDB, tenantID uuid.UUID, roleID *uuid.UUID) (*Role, error)
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var _ Roles = (*roles)(nil)

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
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetByID(ctx context.Context, tenantID, roleID uuid.UUID) (*Role, error) {
	return a.getByIDTx(ctx, a.db, tenantID, roleID)
}

func (a *roles) getByIDTx(ctx context.Context, tx bun.IDB, tenantID, roleID uuid.UUID) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", roleID).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"role_id": roleID.String()})
	}
	return record, nil
}

func (a *roles) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*Role, error) {
	return a.getByNameTx(ctx, a.db, tenantID, name)
}

func (a *roles) getByNameTx(ctx context.Context, tx bun.IDB, tenantID uuid.UUID, name string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"name": name})
	}
	return record, nil
}

func (a *roles) Resolve(ctx context.Context, tenantID uuid.UUID, roleID *uuid.UUID) (*Role, error) {
	return a.ResolveTx(ctx, a.db, tenantID, roleID)
}

func (a *roles) ResolveTx(ctx context.Context, tx bun.IDB, tenantID uuid.UUID, roleID *uuid.UUID) (*Role, error) {
	if roleID != nil {
		role, err := a.getByIDTx(ctx, tx, tenantID, *roleID)
		if err == nil {
			return role, nil
		}
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	role, err := a.getByNameTx(ctx, tx, tenantID, RoleNameMember)
	if err == nil {
		return role, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.anyExceptTx(ctx, tx, tenantID, RoleNameOwner)
}

func (a *roles) anyExceptTx(ctx context.Context, tx bun.IDB, tenantID uuid.UUID, excluded string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Where("?TableAlias.name != ?", excluded).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(wrapNotFound(err, nil)) {
			// nothing to attach; the member keeps a NULL role_id
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
