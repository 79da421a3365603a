package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the tenant-level role of a member
type UserRole = string

const (
	// RoleMember is a regular member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, invite, delete)
	RoleAdmin UserRole = "admin"
	// RoleOwner is the tenant owner, only one per tenant
	RoleOwner UserRole = "owner"
)

// RoleNameMember and RoleNameOwner are the well-known directory role
// names used by the fallback resolver.
const (
	RoleNameMember = "Member"
	RoleNameOwner  = "Owner"
)

// User is the profile record of a tenant member
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TenantID      uuid.UUID      `bun:"tenant_id,notnull,type:uuid" json:"tenant_id,omitempty"`
	Email         string         `bun:"email,notnull" json:"email,omitempty"`
	Name          string         `bun:"name,notnull" json:"name,omitempty"`
	Role          UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	RoleID        *uuid.UUID     `bun:"role_id,nullzero,type:uuid" json:"role_id,omitempty"`
	Appearance    map[string]any `bun:"appearance,type:jsonb" json:"appearance,omitempty"`
	Origin        *string        `bun:"origin" json:"origin,omitempty"`
	InternalID    *string        `bun:"internal_id" json:"internal_id,omitempty"`
	APIKey        string         `bun:"api_key" json:"api_key,omitempty"`
	JWTIat        *time.Time     `bun:"jwt_iat,nullzero" json:"jwt_iat,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Credential *Credential `bun:"rel:has-one,join:id=user_id" json:"credential,omitempty"`
	RoleRef    *Role       `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// SuperAdmin reports whether the user owns the tenant
func (u *User) SuperAdmin() bool { return u.Role == RoleOwner }

// Admin reports whether the user can manage members
func (u *User) Admin() bool { return u.Role == RoleAdmin }

// PlainMember reports whether the user has no management rights
func (u *User) PlainMember() bool { return u.Role == RoleMember }

// SSOProvisioned reports whether the account came from an external
// identity provider
func (u *User) SSOProvisioned() bool { return u.Origin != nil }

// HasPassword reports whether a local password hash is stored
func (u *User) HasPassword() bool {
	return u.Credential != nil && u.Credential.PasswordHash != nil
}

// Credential is the authentication record, exactly one per User.
// PasswordHash is nil for pure-SSO accounts and for invited members
// that never completed activation.
type Credential struct {
	bun.BaseModel     `bun:"table:credentials,alias:cred"`
	UserID            uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	PasswordHash      *string    `bun:"password_hash" json:"-"`
	GeneratedPassword bool       `bun:"generated_password,notnull,default:false" json:"generated_password,omitempty"`
	InvitationToken   *string    `bun:"invitation_token" json:"invitation_token,omitempty"`
	InvitedAt         *time.Time `bun:"invited_at,nullzero" json:"invited_at,omitempty"`
	ChangePwdToken    *string    `bun:"change_pwd_token" json:"-"`
	ChangePwdExpireAt *time.Time `bun:"change_pwd_expire_at,nullzero" json:"change_pwd_expire_at,omitempty"`
	ChangedAt         *time.Time `bun:"changed_at,nullzero" json:"changed_at,omitempty"`
}

// Role is a tenant-scoped role with a permission set
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TenantID      uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Permissions   []string   `bun:"permissions,array" json:"permissions,omitempty"`
	AllProjects   bool       `bun:"all_projects,notnull,default:true" json:"all_projects,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// InvitationExpiry is how long an invitation stays fresh before the
// member list flags it as expired.
var InvitationExpiry = 24 * time.Hour

// Member is the outward view of a user assembled from the profile,
// credential and role records. This is the single serialization schema
// the HTTP layer consumes.
type Member struct {
	ID                uuid.UUID      `json:"id"`
	TenantID          uuid.UUID      `json:"tenantId,omitempty"`
	Email             string         `json:"email"`
	Name              string         `json:"name"`
	Role              UserRole       `json:"role"`
	RoleID            *uuid.UUID     `json:"roleId,omitempty"`
	RoleName          string         `json:"roleName,omitempty"`
	Permissions       []string       `json:"permissions,omitempty"`
	AllProjects       bool           `json:"allProjects,omitempty"`
	SuperAdmin        bool           `json:"superAdmin"`
	Admin             bool           `json:"admin"`
	Member            bool           `json:"member"`
	Appearance        map[string]any `json:"appearance,omitempty"`
	APIKey            string         `json:"apiKey,omitempty"`
	Origin            *string        `json:"origin,omitempty"`
	ChangePassword    bool           `json:"changePassword"`
	HasPassword       bool           `json:"hasPassword"`
	Joined            bool           `json:"joined"`
	ExpiredInvitation bool           `json:"expiredInvitation"`
	InvitationLink    string         `json:"invitationLink,omitempty"`
}

// NewMember projects a user record into its outward view. The clock is
// injectable so list snapshots are reproducible in tests.
func NewMember(u *User, now time.Time) *Member {
	if u == nil {
		return nil
	}

	m := &Member{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		RoleID:      u.RoleID,
		SuperAdmin:  u.SuperAdmin(),
		Admin:       u.Admin(),
		Member:      u.PlainMember(),
		Appearance:  u.Appearance,
		APIKey:      u.APIKey,
		Origin:      u.Origin,
		HasPassword: u.HasPassword(),
	}

	if u.RoleRef != nil {
		m.RoleName = u.RoleRef.Name
		m.Permissions = u.RoleRef.Permissions
		m.AllProjects = u.RoleRef.AllProjects
	}

	if c := u.Credential; c != nil {
		m.ChangePassword = c.GeneratedPassword
		m.Joined = c.PasswordHash != nil || u.Origin != nil
		if c.InvitedAt != nil {
			m.ExpiredInvitation = now.Sub(*c.InvitedAt) >= InvitationExpiry
		} else {
			m.ExpiredInvitation = true
		}
	} else {
		m.Joined = u.Origin != nil
		m.ExpiredInvitation = true
	}

	return m
}
