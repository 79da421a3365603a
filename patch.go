package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Optional carries a tri-state column value: absent, set, or set-to-NULL.
type Optional[T any] struct {
	present bool
	valid   bool
	value   T
}

// Set returns an Optional holding a value
func Set[T any](v T) Optional[T] {
	return Optional[T]{present: true, valid: true, value: v}
}

// Null returns an Optional that clears the column
func Null[T any]() Optional[T] {
	return Optional[T]{present: true}
}

// Present reports whether the field participates in the patch
func (o Optional[T]) Present() bool { return o.present }

// Get returns the value and whether it is non-NULL
func (o Optional[T]) Get() (T, bool) { return o.value, o.valid }

// Ptr returns the value as a nullable pointer for storage
func (o Optional[T]) Ptr() *T {
	if !o.valid {
		return nil
	}
	v := o.value
	return &v
}

// AccountPatch is the explicit allow-list of updatable attributes,
// split across the profile and credential records. Each field maps to
// exactly one column; anything not listed here cannot be patched.
type AccountPatch struct {
	// profile record
	Name       Optional[string]
	Email      Optional[string]
	Role       Optional[UserRole]
	RoleID     Optional[uuid.UUID]
	Appearance Optional[map[string]any]

	// credential record; Password is hashed before it reaches the store
	Password          Optional[string]
	GeneratedPassword Optional[bool]
	InvitationToken   Optional[string]
	InvitedAt         Optional[time.Time]
	ChangePwdToken    Optional[string]
	ChangePwdExpireAt Optional[time.Time]
}

// Column names per patched field, the single field-to-column schema.
const (
	colName              = "name"
	colEmail             = "email"
	colRole              = "user_role"
	colRoleID            = "role_id"
	colAppearance        = "appearance"
	colPasswordHash      = "password_hash"
	colGeneratedPassword = "generated_password"
	colInvitationToken   = "invitation_token"
	colInvitedAt         = "invited_at"
	colChangePwdToken    = "change_pwd_token"
	colChangePwdExpireAt = "change_pwd_expire_at"
	colChangedAt         = "changed_at"
)

// HasProfileChanges reports whether any users-table column is patched
func (p AccountPatch) HasProfileChanges() bool {
	return p.Name.Present() || p.Email.Present() || p.Role.Present() ||
		p.RoleID.Present() || p.Appearance.Present()
}

// HasCredentialChanges reports whether any credentials-table column is patched
func (p AccountPatch) HasCredentialChanges() bool {
	return p.Password.Present() || p.GeneratedPassword.Present() ||
		p.InvitationToken.Present() || p.InvitedAt.Present() ||
		p.ChangePwdToken.Present() || p.ChangePwdExpireAt.Present()
}

// Empty reports whether the patch carries no recognized fields
func (p AccountPatch) Empty() bool {
	return !p.HasProfileChanges() && !p.HasCredentialChanges()
}

// ProfileColumns materializes the users-table side of the patch.
// RoleID is resolved separately by the role directory, so it is
// returned as-is here.
func (p AccountPatch) ProfileColumns() map[string]any {
	cols := map[string]any{}
	if p.Name.Present() {
		cols[colName] = p.Name.Ptr()
	}
	if p.Email.Present() {
		cols[colEmail] = p.Email.Ptr()
	}
	if p.Role.Present() {
		cols[colRole] = p.Role.Ptr()
	}
	if p.RoleID.Present() {
		cols[colRoleID] = p.RoleID.Ptr()
	}
	if p.Appearance.Present() {
		if v, ok := p.Appearance.Get(); ok {
			cols[colAppearance] = v
		} else {
			cols[colAppearance] = nil
		}
	}
	return cols
}

// CredentialColumns materializes the credentials-table side of the
// patch. A password set bumps changed_at; passwords are stored hashed,
// never in plaintext.
func (p AccountPatch) CredentialColumns(now time.Time) (map[string]any, error) {
	cols := map[string]any{}
	if p.Password.Present() {
		if pwd, ok := p.Password.Get(); ok {
			hash, err := HashPassword(pwd)
			if err != nil {
				return nil, err
			}
			cols[colPasswordHash] = hash
			cols[colChangedAt] = now
		} else {
			cols[colPasswordHash] = nil
		}
	}
	if p.GeneratedPassword.Present() {
		cols[colGeneratedPassword] = p.GeneratedPassword.Ptr()
	}
	if p.InvitationToken.Present() {
		cols[colInvitationToken] = p.InvitationToken.Ptr()
	}
	if p.InvitedAt.Present() {
		cols[colInvitedAt] = p.InvitedAt.Ptr()
	}
	if p.ChangePwdToken.Present() {
		cols[colChangePwdToken] = p.ChangePwdToken.Ptr()
	}
	if p.ChangePwdExpireAt.Present() {
		cols[colChangePwdExpireAt] = p.ChangePwdExpireAt.Ptr()
	}
	return cols, nil
}
