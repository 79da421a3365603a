package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InvitationLookup is what an invitation or reset link resolves to: the
// member plus the freshness of both tokens.
type InvitationLookup struct {
	*Member
	ExpiredChange bool  `json:"expiredChange"`
	ChangePwdAge  int64 `json:"changePwdAge"`
}

// Update applies a validated AccountPatch to the account. Profile and
// credential columns are written in a single transaction so a partial
// patch can never be observed. An empty patch is a no-op and returns
// (nil, nil). Returns the refreshed member projection.
func (s *Service) Update(ctx context.Context, tenantID, userID uuid.UUID, patch AccountPatch) (*Member, error) {
	if patch.Empty() {
		return nil, nil
	}

	now := s.now().UTC()

	if id, ok := patch.RoleID.Get(); patch.RoleID.Present() && ok {
		role, err := s.repo.Roles().Resolve(ctx, tenantID, &id)
		if err != nil {
			return nil, wrapStoreErr(err, "could not resolve member role")
		}
		if role != nil {
			patch.RoleID = Set(role.ID)
		} else {
			patch.RoleID = Null[uuid.UUID]()
		}
	}

	credCols, err := patch.CredentialColumns(now)
	if err != nil {
		return nil, err
	}
	profileCols := patch.ProfileColumns()

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(profileCols) > 0 {
			if err := s.repo.Users().ApplyTx(ctx, tx, tenantID, userID, profileCols); err != nil {
				return err
			}
		}
		if len(credCols) > 0 {
			if err := s.repo.Credentials().ApplyTx(ctx, tx, userID, credCols); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.Clone()
		}
		return nil, wrapStoreErr(err, "could not update member")
	}

	return s.Get(ctx, tenantID, userID)
}

// ChangePassword verifies the old password and replaces it with the new
// one, then performs a fresh login so the caller walks away with a
// valid token. SSO accounts without a local password cannot change
// passwords here; reusing the old password is rejected.
func (s *Service) ChangePassword(ctx context.Context, tenantID, userID uuid.UUID, email, oldPassword, newPassword string) (*AuthResult, error) {
	user, err := s.repo.Users().GetActive(ctx, tenantID, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}

	if user.SSOProvisioned() && !user.HasPassword() {
		return nil, ErrSSOAccount.Clone()
	}

	if oldPassword == newPassword {
		return nil, ErrSamePassword.Clone()
	}

	if _, err := s.verifyPassword(ctx, email, oldPassword); err != nil {
		return nil, err
	}

	_, err = s.Update(ctx, tenantID, userID, AccountPatch{
		Password:          Set(newPassword),
		GeneratedPassword: Set(false),
	})
	if err != nil {
		return nil, err
	}

	return s.Authenticate(ctx, user.Email, newPassword)
}

// SetPasswordInvitation completes an invitation or a password reset:
// the new password is written and every outstanding token is voided in
// the same transaction, then the member is logged in. Only accounts in
// a pending state (invited, generated password, or reset-pending) can
// take this path.
func (s *Service) SetPasswordInvitation(ctx context.Context, tenantID, userID uuid.UUID, newPassword string) (*AuthResult, error) {
	user, err := s.repo.Users().GetActive(ctx, tenantID, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not load member")
	}

	if err := EnsureTransition(StateOf(user), StateActive); err != nil {
		return nil, err
	}

	_, err = s.Update(ctx, tenantID, userID, AccountPatch{
		Password:          Set(newPassword),
		GeneratedPassword: Set(false),
		InvitationToken:   Null[string](),
		InvitedAt:         Null[time.Time](),
		ChangePwdToken:    Null[string](),
		ChangePwdExpireAt: Null[time.Time](),
	})
	if err != nil {
		return nil, err
	}

	return s.Authenticate(ctx, user.Email, newPassword)
}

// AllowPasswordChange arms a short-lived reset token for the account
// and returns it. Any previously issued token is overwritten, so at
// most one reset is pending at a time.
func (s *Service) AllowPasswordChange(ctx context.Context, userID uuid.UUID) (string, error) {
	token := NewResetToken()
	expireAt := s.now().UTC().Add(s.resetTokenTTL())

	if err := s.repo.Credentials().SetResetToken(ctx, userID, token, expireAt); err != nil {
		return "", wrapStoreErr(err, "could not arm password reset")
	}

	return token, nil
}

// GetByInvitationToken resolves an invitation link, optionally also
// matching a pending reset token, and reports whether either token has
// gone stale. Deleted accounts never resolve.
func (s *Service) GetByInvitationToken(ctx context.Context, token string, resetToken *string) (*InvitationLookup, error) {
	user, err := s.repo.Users().GetByInvitationToken(ctx, token, resetToken)
	if err != nil {
		return nil, wrapStoreErr(err, "could not resolve invitation")
	}

	now := s.now().UTC()
	lookup := &InvitationLookup{
		Member:        s.memberView(user),
		ExpiredChange: true,
	}

	if user.Credential != nil && user.Credential.ChangePwdExpireAt != nil {
		lookup.ExpiredChange = now.After(*user.Credential.ChangePwdExpireAt)
		lookup.ChangePwdAge = int64(now.Sub(*user.Credential.ChangePwdExpireAt).Seconds())
	}

	return lookup, nil
}
