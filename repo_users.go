package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the profile-record store. Lookups only ever see active rows
// (deleted_at IS NULL) unless the method name says otherwise; restoring
// a soft-deleted account is the single path back.
type Users interface {
	GetActive(ctx context.Context, tenantID, userID uuid.UUID) (*User, error)
	GetActiveTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetDeletedByEmail(ctx context.Context, email string) (*User, error)
	GetDeletedByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetBySSOIdentity(ctx context.Context, email, internalID string) (*User, error)
	GetByInvitationToken(ctx context.Context, token string, resetToken *string) (*User, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*User, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)

	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	RestoreTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	ApplyTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID, cols map[string]any) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) error

	BumpJWTIat(ctx context.Context, userID uuid.UUID) (time.Time, error)
	BumpJWTIatTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (time.Time, error)
	SetAPIKey(ctx context.Context, userID uuid.UUID, key string) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption configures the users repository
type UsersOption func(*users)

// UsersWithClock injects the clock behind restore, delete and
// watermark timestamps
func UsersWithClock(clock func() time.Time) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	u := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

func (a *users) GetActive(ctx context.Context, tenantID, userID uuid.UUID) (*User, error) {
	return a.GetActiveTx(ctx, a.db, tenantID, userID)
}

func (a *users) GetActiveTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Credential").
		Relation("RoleRef").
		Where("?TableAlias.id = ?", userID).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"user_id": userID.String()})
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Credential").
		Relation("RoleRef").
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) GetDeletedByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetDeletedByEmailTx(ctx, a.db, email)
}

func (a *users) GetDeletedByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		WhereDeleted().
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) GetBySSOIdentity(ctx context.Context, email, internalID string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Credential").
		Relation("RoleRef").
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.internal_id = ?", internalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) GetByInvitationToken(ctx context.Context, token string, resetToken *string) (*User, error) {
	record := &User{}
	q := a.db.NewSelect().
		Model(record).
		Relation("Credential").
		Join("JOIN credentials AS cred ON cred.user_id = ?TableAlias.id").
		Where("cred.invitation_token = ?", token)

	if resetToken != nil {
		q = q.Where("cred.change_pwd_token = ?", *resetToken)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, map[string]any{"token": "invitation"})
	}
	return record, nil
}

func (a *users) List(ctx context.Context, tenantID uuid.UUID) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Relation("Credential").
		Relation("RoleRef").
		Where("?TableAlias.tenant_id = ?", tenantID).
		Order("name ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Count(ctx)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

// RestoreTx soft-undeletes a previously removed account, reusing its
// id and resetting every mutable column.
func (a *users) RestoreTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record.APIKey == "" {
		record.APIKey = NewAPIKey()
	}
	now := a.now()

	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		ModelTableExpr("users AS usr").
		Set("tenant_id = ?", record.TenantID).
		Set("email = ?", record.Email).
		Set("name = ?", record.Name).
		Set("user_role = ?", record.Role).
		Set("role_id = ?", record.RoleID).
		Set("appearance = NULL").
		Set("origin = ?", record.Origin).
		Set("internal_id = ?", record.InternalID).
		Set("api_key = ?", record.APIKey).
		Set("jwt_iat = NULL").
		Set("created_at = ?", now).
		Set("deleted_at = NULL").
		Where("usr.id = ?", record.ID).
		WhereAllWithDeleted().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": record.ID.String()})
	}

	record.CreatedAt = &now
	record.DeletedAt = nil
	record.JWTIat = nil
	record.Appearance = nil
	return record, nil
}

func (a *users) ApplyTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}

	q := tx.NewUpdate().
		Model((*User)(nil)).
		ModelTableExpr("users AS usr").
		Where("usr.id = ?", userID).
		Where("usr.tenant_id = ?", tenantID).
		Where("usr.deleted_at IS NULL")

	for col, val := range cols {
		if m, ok := val.(map[string]any); ok {
			raw, err := json.Marshal(m)
			if err != nil {
				return err
			}
			val = string(raw)
		}
		q = q.Set("? = ?", bun.Ident(col), val)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": userID.String()})
	}

	return nil
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		ModelTableExpr("users AS usr").
		Set("deleted_at = ?", a.now()).
		Where("usr.id = ?", userID).
		Where("usr.tenant_id = ?", tenantID).
		Where("usr.deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": userID.String()})
	}

	return nil
}

func (a *users) BumpJWTIat(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	return a.BumpJWTIatTx(ctx, a.db, userID)
}

// BumpJWTIatTx moves the token watermark forward; the watermark only
// ever advances, and a token minted before the write commits would be
// dead on arrival.
func (a *users) BumpJWTIatTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (time.Time, error) {
	now := a.now().UTC()

	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		ModelTableExpr("users AS usr").
		Set("jwt_iat = ?", now).
		Where("usr.id = ?", userID).
		Where("usr.deleted_at IS NULL").
		Where("usr.jwt_iat IS NULL OR usr.jwt_iat <= ?", now).
		Exec(ctx)
	if err != nil {
		return time.Time{}, err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return time.Time{}, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": userID.String()})
	}

	return now, nil
}

func (a *users) SetAPIKey(ctx context.Context, userID uuid.UUID, key string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		ModelTableExpr("users AS usr").
		Set("api_key = ?", key).
		Where("usr.id = ?", userID).
		Where("usr.deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": userID.String()})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.APIKey == "" {
		record.APIKey = NewAPIKey()
	}
}

func wrapNotFound(err error, meta map[string]any) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return repository.NewRecordNotFound().WithMetadata(meta)
	}
	return err
}
