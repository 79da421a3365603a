package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewMemberRequest describes an invitation issued by a tenant admin.
// RoleID is optional; when absent the tenant's default role is used.
type NewMemberRequest struct {
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Admin  bool       `json:"admin"`
	RoleID *uuid.UUID `json:"roleId"`
}

// EditMemberRequest carries a partial profile update. Nil fields are
// left untouched.
type EditMemberRequest struct {
	Name       *string        `json:"name"`
	Email      *string        `json:"email"`
	Admin      *bool          `json:"admin"`
	RoleID     *uuid.UUID     `json:"roleId"`
	Appearance map[string]any `json:"appearance"`
}

// CreateMember invites a new member into the tenant, or restores a
// previously deleted account that owned the same email. The caller
// identified by editorID must hold admin or owner rights. The new
// account starts in the invited state: a generated-password credential
// with a fresh invitation token, delivered out of band by the mailer.
func (s *Service) CreateMember(ctx context.Context, tenantID, editorID uuid.UUID, req NewMemberRequest) (*Member, error) {
	editor, err := s.repo.Users().GetActive(ctx, tenantID, editorID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load inviting member")
	}

	if !editor.CanManageMembers() {
		return nil, ErrUnauthorized.Clone()
	}

	email := normalizeEmail(req.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email
	} else if err := ValidateMemberName(name); err != nil {
		return nil, err
	}

	if _, err := s.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken.Clone()
	} else if !IsNotFound(err) {
		return nil, wrapStoreErr(err, "could not check email availability")
	}

	role, err := s.repo.Roles().Resolve(ctx, tenantID, req.RoleID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not resolve member role")
	}

	now := s.now().UTC()
	token := NewInvitationToken()

	userRole := RoleMember
	if req.Admin {
		userRole = RoleAdmin
	}

	user := &User{
		TenantID: tenantID,
		Email:    email,
		Name:     name,
		Role:     userRole,
	}
	if role != nil {
		user.RoleID = &role.ID
	}

	deleted, derr := s.repo.Users().GetDeletedByEmail(ctx, email)
	if derr != nil && !IsNotFound(derr) {
		return nil, wrapStoreErr(derr, "could not check deleted accounts")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if deleted != nil {
			user.ID = deleted.ID
			restored, err := s.repo.Users().RestoreTx(ctx, tx, user)
			if err != nil {
				return err
			}
			user = restored
			return s.repo.Credentials().SetInvitationTx(ctx, tx, user.ID, token, now)
		}

		created, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created

		_, err = s.repo.Credentials().CreateTx(ctx, tx, &Credential{
			UserID:            user.ID,
			GeneratedPassword: true,
			InvitationToken:   &token,
			InvitedAt:         &now,
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.Clone()
		}
		return nil, wrapStoreErr(err, "could not create member")
	}

	user.RoleRef = role
	user.Credential = &Credential{
		UserID:            user.ID,
		GeneratedPassword: true,
		InvitationToken:   &token,
		InvitedAt:         &now,
	}

	member := NewMember(user, now)
	member.InvitationLink = s.invitationLink(token)

	s.dispatchInvitation(email, member.InvitationLink, s.tenantName(ctx, tenantID.String()), editor.Name)

	return member, nil
}

// Edit applies a partial profile update to a member.
//
// Editing someone else, or toggling the admin flag, requires admin or
// owner rights. An owner editing themselves keeps their role no matter
// what the request says; a regular admin asking to change their own
// admin flag is rejected outright.
func (s *Service) Edit(ctx context.Context, tenantID, editorID, targetID uuid.UUID, req EditMemberRequest) (*Member, error) {
	target, err := s.repo.Users().GetActive(ctx, tenantID, targetID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}

	adminChanging := req.Admin != nil && *req.Admin != target.Admin()

	if editorID != targetID || adminChanging {
		editor := target
		if editorID != targetID {
			editor, err = s.repo.Users().GetActive(ctx, tenantID, editorID)
			if err != nil {
				return nil, wrapStoreErr(err, "could not load editing member")
			}
		}
		if !editor.CanManageMembers() {
			return nil, ErrUnauthorized.Clone()
		}
	}

	if editorID == targetID && req.Admin != nil {
		if target.SuperAdmin() {
			// owners keep their role; drop the flag silently
			req.Admin = nil
			adminChanging = false
		} else if adminChanging {
			return nil, ErrCannotChangeOwnRole.Clone()
		}
	}

	patch := AccountPatch{}

	if req.Name != nil {
		patch.Name = Set(strings.TrimSpace(*req.Name))
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != target.Email {
			if err := ValidateEmail(email); err != nil {
				return nil, err
			}
			if _, err := s.repo.Users().GetByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken.Clone()
			} else if !IsNotFound(err) {
				return nil, wrapStoreErr(err, "could not check email availability")
			}
			if _, err := s.repo.Users().GetDeletedByEmail(ctx, email); err == nil {
				return nil, ErrEmailPreviouslyDeleted.Clone()
			} else if !IsNotFound(err) {
				return nil, wrapStoreErr(err, "could not check deleted accounts")
			}
			patch.Email = Set(email)
		}
	}

	if req.Admin != nil && adminChanging {
		role := RoleMember
		if *req.Admin {
			role = RoleAdmin
		}
		patch.Role = Set(role)
	}

	if req.RoleID != nil {
		patch.RoleID = Set(*req.RoleID)
	}

	if req.Appearance != nil {
		patch.Appearance = Set(req.Appearance)
	}

	if patch.Empty() {
		return NewMember(target, s.now().UTC()), nil
	}

	return s.Update(ctx, tenantID, targetID, patch)
}

// EditAppearance stores the member's own UI preferences.
func (s *Service) EditAppearance(ctx context.Context, tenantID, userID uuid.UUID, appearance map[string]any) (*Member, error) {
	return s.Update(ctx, tenantID, userID, AccountPatch{
		Appearance: Set(appearance),
	})
}

// DeleteMember soft-deletes a member and clears their password so the
// row can later be restored without a live credential. Self-deletion
// and deleting an owner are rejected; plain members cannot delete
// anyone. Returns the refreshed member list for the tenant.
func (s *Service) DeleteMember(ctx context.Context, tenantID, editorID, targetID uuid.UUID) ([]*Member, error) {
	if editorID == targetID {
		return nil, ErrCannotDeleteSelf.Clone()
	}

	editor, err := s.repo.Users().GetActive(ctx, tenantID, editorID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load deleting member")
	}

	if editor.PlainMember() {
		return nil, ErrUnauthorized.Clone()
	}

	target, err := s.repo.Users().GetActive(ctx, tenantID, targetID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}

	if target.SuperAdmin() {
		return nil, ErrCannotDeleteOwner.Clone()
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().SoftDeleteTx(ctx, tx, tenantID, targetID); err != nil {
			return err
		}
		return s.repo.Credentials().ClearPasswordTx(ctx, tx, targetID)
	})
	if err != nil {
		return nil, wrapStoreErr(err, "could not delete member")
	}

	return s.GetMembers(ctx, tenantID)
}

// ResetMember voids a member's credential and issues a fresh
// invitation, returning the new invitation link. Requires admin or
// owner rights.
func (s *Service) ResetMember(ctx context.Context, tenantID, editorID, targetID uuid.UUID) (string, error) {
	editor, err := s.repo.Users().GetActive(ctx, tenantID, editorID)
	if err != nil {
		return "", wrapStoreErr(err, "could not load resetting member")
	}

	if !editor.CanManageMembers() {
		return "", ErrUnauthorized.Clone()
	}

	if _, err := s.repo.Users().GetActive(ctx, tenantID, targetID); err != nil {
		return "", wrapStoreErr(err, "could not load member")
	}

	now := s.now().UTC()
	token := NewInvitationToken()

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Credentials().SetInvitationTx(ctx, tx, targetID, token, now)
	})
	if err != nil {
		return "", wrapStoreErr(err, "could not reset member")
	}

	return s.invitationLink(token), nil
}

// Get returns a single active member projection.
func (s *Service) Get(ctx context.Context, tenantID, userID uuid.UUID) (*Member, error) {
	user, err := s.repo.Users().GetActive(ctx, tenantID, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}
	return s.memberView(user), nil
}

// GetByEmail returns the active member owning the given email address,
// across tenants.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Member, error) {
	user, err := s.repo.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}
	return s.memberView(user), nil
}

// GetMembers lists the tenant's active members ordered by name.
func (s *Service) GetMembers(ctx context.Context, tenantID uuid.UUID) ([]*Member, error) {
	users, err := s.repo.Users().List(ctx, tenantID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not list members")
	}

	members := make([]*Member, 0, len(users))
	for _, u := range users {
		members = append(members, s.memberView(u))
	}
	return members, nil
}

// CountMembers reports how many active members the tenant has.
func (s *Service) CountMembers(ctx context.Context, tenantID uuid.UUID) (int, error) {
	n, err := s.repo.Users().Count(ctx, tenantID)
	if err != nil {
		return 0, wrapStoreErr(err, "could not count members")
	}
	return n, nil
}

// GenerateNewAPIKey rotates the member's API key and returns the new
// value. The previous key stops working immediately.
func (s *Service) GenerateNewAPIKey(ctx context.Context, userID uuid.UUID) (string, error) {
	key := NewAPIKey()
	if err := s.repo.Users().SetAPIKey(ctx, userID, key); err != nil {
		return "", wrapStoreErr(err, "could not rotate API key")
	}
	return key, nil
}

func (s *Service) memberView(u *User) *Member {
	m := NewMember(u, s.now().UTC())
	if u.Credential != nil && u.Credential.InvitationToken != nil {
		m.InvitationLink = s.invitationLink(*u.Credential.InvitationToken)
	}
	return m
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}
