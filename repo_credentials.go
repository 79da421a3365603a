package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credentials is the authentication-record store. Every row is created
// in the same transaction as its User row.
type Credentials interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Credential, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Credential, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error)
	// SetInvitationTx rearms the invitation: marks the password as
	// generated, stores the token, stamps invited_at, and clears any
	// pending reset token.
	SetInvitationTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string, at time.Time) error
	// SetResetToken installs a single-use change-password token,
	// overwriting any prior one.
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expireAt time.Time) error
	ClearPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	// ResetTx returns every credential column to its default, used when
	// restoring an SSO-provisioned account.
	ResetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	ApplyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, cols map[string]any) error
}

type credentials struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

func NewCredentialsRepository(db *bun.DB) Credentials {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.UserID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.UserID = id
			}
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (a *credentials) GetByUserID(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *credentials) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Credential, error) {
	record := &Credential{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, map[string]any{"user_id": userID.String()})
	}
	return record, nil
}

func (a *credentials) CreateTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error) {
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *credentials) SetInvitationTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("generated_password = ?", true).
		Set("invitation_token = ?", token).
		Set("invited_at = ?", at).
		Set("change_pwd_token = NULL").
		Set("change_pwd_expire_at = NULL").
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return nil
}

func (a *credentials) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expireAt time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*Credential)(nil)).
		Set("change_pwd_token = ?", token).
		Set("change_pwd_expire_at = ?", expireAt).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return nil
}

func (a *credentials) ClearPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("password_hash = NULL").
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

func (a *credentials) ResetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("password_hash = NULL").
		Set("generated_password = ?", false).
		Set("invitation_token = NULL").
		Set("invited_at = NULL").
		Set("change_pwd_token = NULL").
		Set("change_pwd_expire_at = NULL").
		Set("changed_at = NULL").
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

func (a *credentials) ApplyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}

	q := tx.NewUpdate().
		Model((*Credential)(nil)).
		Where("?TableAlias.user_id = ?", userID)

	for col, val := range cols {
		q = q.Set("? = ?", bun.Ident(col), val)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return nil
}
