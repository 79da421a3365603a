package accounts

import (
	"context"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthResult is a successful login: the signed session token plus the
// member it belongs to. IssuedAt mirrors the revocation watermark the
// token was minted against.
type AuthResult struct {
	Token    string    `json:"jwt"`
	User     *Member   `json:"user"`
	IssuedAt time.Time `json:"-"`
}

type authOptions struct {
	plugin bool
}

// AuthOption tailors a password login
type AuthOption func(*authOptions)

// ForPlugin mints a plugin-audience token instead of a front-app one.
// Plugin sessions survive watermark bumps as long as the password has
// not changed since the token was issued.
func ForPlugin() AuthOption {
	return func(o *authOptions) { o.plugin = true }
}

// SSOUserRequest describes an account provisioned or restored from an
// identity-provider assertion.
type SSOUserRequest struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Admin      bool       `json:"admin"`
	Origin     string     `json:"origin"`
	InternalID *string    `json:"internalId"`
	RoleID     *uuid.UUID `json:"roleId"`
}

// Authenticate performs a password login. On success the revocation
// watermark is advanced first and the token minted against it, so the
// new session is the only live one. Failures are uniform bad-credential
// errors, except SSO-managed accounts which are told to use their
// identity provider.
func (s *Service) Authenticate(ctx context.Context, email, password string, opts ...AuthOption) (*AuthResult, error) {
	options := &authOptions{}
	for _, opt := range opts {
		opt(options)
	}

	user, err := s.verifyPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	audience := FrontAudience(s.config.GetStage())
	if options.plugin {
		audience = PluginAudience(s.config.GetStage())
	}

	iat, err := s.repo.Users().BumpJWTIat(ctx, user.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not advance session watermark")
	}

	token, err := s.tokens.Issue(user.ID.String(), user.TenantID.String(), iat, audience, nil)
	if err != nil {
		return nil, err
	}

	user.JWTIat = &iat

	return &AuthResult{
		Token:    token,
		User:     s.memberView(user),
		IssuedAt: iat,
	}, nil
}

// AuthenticateSSO logs in a member on the strength of an
// identity-provider assertion, matched by email and optionally by the
// provider's internal id. No password is involved; the watermark still
// advances so prior sessions die.
func (s *Service) AuthenticateSSO(ctx context.Context, email string, internalID *string, exp *time.Duration) (*AuthResult, error) {
	internal := ""
	if internalID != nil {
		internal = *internalID
	}

	user, err := s.repo.Users().GetBySSOIdentity(ctx, normalizeEmail(email), internal)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAuthFailure.Clone()
		}
		return nil, wrapStoreErr(err, "could not load member")
	}

	iat, err := s.repo.Users().BumpJWTIat(ctx, user.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not advance session watermark")
	}

	token, err := s.tokens.Issue(user.ID.String(), user.TenantID.String(), iat, FrontAudience(s.config.GetStage()), exp)
	if err != nil {
		return nil, err
	}

	user.JWTIat = &iat

	return &AuthResult{
		Token:    token,
		User:     s.memberView(user),
		IssuedAt: iat,
	}, nil
}

// AuthExists checks a presented token's issued-at against the stored
// watermark. Within one second of the watermark the session is live.
// Plugin-audience sessions are held to a looser standard: they stay
// valid until the password actually changes.
func (s *Service) AuthExists(ctx context.Context, tenantID, userID uuid.UUID, issuedAt time.Time, audience string) (bool, error) {
	user, err := s.repo.Users().GetActive(ctx, tenantID, userID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, wrapStoreErr(err, "could not load member")
	}

	// no watermark means no session was ever minted for this account
	if user.JWTIat == nil {
		return false, nil
	}

	drift := issuedAt.Unix() - user.JWTIat.Unix()
	if drift >= -1 && drift <= 1 {
		return true, nil
	}

	if IsPluginAudience(audience) {
		cred := user.Credential
		if cred == nil || cred.ChangedAt == nil {
			return true, nil
		}
		return issuedAt.Unix() >= cred.ChangedAt.Unix(), nil
	}

	return false, nil
}

// RefreshJWTIat advances the member's revocation watermark, voiding
// every outstanding front-app session, and returns the new watermark.
func (s *Service) RefreshJWTIat(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	iat, err := s.repo.Users().BumpJWTIat(ctx, userID)
	if err != nil {
		return time.Time{}, wrapStoreErr(err, "could not advance session watermark")
	}
	return iat, nil
}

// ProvisionSSOUser creates a member from an identity-provider
// assertion: no invitation, no password, origin recorded so password
// logins know to bounce. With deterministic ids enabled the account id
// derives from the email, making provisioning idempotent across nodes.
func (s *Service) ProvisionSSOUser(ctx context.Context, tenantID uuid.UUID, req SSOUserRequest) (*Member, error) {
	email := normalizeEmail(req.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = email
	}

	role, err := s.repo.Roles().Resolve(ctx, tenantID, req.RoleID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not resolve member role")
	}

	userRole := RoleMember
	if req.Admin {
		userRole = RoleAdmin
	}

	origin := req.Origin
	user := &User{
		TenantID:   tenantID,
		Email:      email,
		Name:       name,
		Role:       userRole,
		Origin:     &origin,
		InternalID: req.InternalID,
	}
	if role != nil {
		user.RoleID = &role.ID
	}
	if s.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created

		_, err = s.repo.Credentials().CreateTx(ctx, tx, &Credential{UserID: user.ID})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.Clone()
		}
		return nil, wrapStoreErr(err, "could not provision member")
	}

	user.RoleRef = role
	user.Credential = &Credential{UserID: user.ID}

	return s.memberView(user), nil
}

// RestoreSSOUser revives a soft-deleted account for a returning SSO
// member: profile rewritten from the assertion, credential wiped back
// to defaults.
func (s *Service) RestoreSSOUser(ctx context.Context, tenantID, userID uuid.UUID, req SSOUserRequest) (*Member, error) {
	email := normalizeEmail(req.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = email
	}

	role, err := s.repo.Roles().Resolve(ctx, tenantID, req.RoleID)
	if err != nil {
		return nil, wrapStoreErr(err, "could not resolve member role")
	}

	userRole := RoleMember
	if req.Admin {
		userRole = RoleAdmin
	}

	origin := req.Origin
	user := &User{
		ID:         userID,
		TenantID:   tenantID,
		Email:      email,
		Name:       name,
		Role:       userRole,
		Origin:     &origin,
		InternalID: req.InternalID,
	}
	if role != nil {
		user.RoleID = &role.ID
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		restored, err := s.repo.Users().RestoreTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = restored
		return s.repo.Credentials().ResetTx(ctx, tx, userID)
	})
	if err != nil {
		return nil, wrapStoreErr(err, "could not restore member")
	}

	user.RoleRef = role
	user.Credential = &Credential{UserID: userID}

	return s.memberView(user), nil
}

// verifyPassword is the single bcrypt checkpoint for password logins.
// Any failed match on an SSO-managed account surfaces ErrSSORequired
// when SSO is enabled, whether or not a local password exists; every
// other failure collapses into a uniform bad-credentials error.
func (s *Service) verifyPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAuthFailure.Clone()
		}
		return nil, wrapStoreErr(err, "could not load member")
	}

	if !user.HasPassword() {
		return nil, s.passwordFailure(user)
	}

	if err := ComparePasswordAndHash(password, *user.Credential.PasswordHash); err != nil {
		return nil, s.passwordFailure(user)
	}

	return user, nil
}

func (s *Service) passwordFailure(user *User) error {
	if s.config.GetSSOEnabled() && user.SSOProvisioned() {
		return ErrSSORequired.Clone()
	}
	return ErrAuthFailure.Clone()
}
