package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	accounts "github.com/sessionlab/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_Success(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	user := userWithPassword(t, testTargetID, "secret-password")
	iat := time.Now().UTC().Truncate(time.Second)

	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)
	repo.users.On("BumpJWTIat", ctx, testTargetID).Return(iat, nil)

	result, err := svc.Authenticate(ctx, user.Email, "secret-password")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, iat, result.IssuedAt)
	assert.Equal(t, testTargetID, result.User.ID)

	ts := accounts.NewTokenService([]byte("test-signing-key"), 24, "accounts-test", nil)
	claims, err := ts.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, testTargetID.String(), claims.UserID())
	assert.Equal(t, "front:test", claims.SessionAudience())
	assert.Equal(t, iat.Unix(), claims.IssuedAtTime().Unix())
}

func TestAuthenticate_PluginAudience(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	user := userWithPassword(t, testTargetID, "secret-password")
	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)
	repo.users.On("BumpJWTIat", ctx, testTargetID).Return(time.Now().UTC(), nil)

	result, err := svc.Authenticate(ctx, user.Email, "secret-password", accounts.ForPlugin())
	require.NoError(t, err)

	ts := accounts.NewTokenService([]byte("test-signing-key"), 24, "accounts-test", nil)
	claims, err := ts.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "plugin:test", claims.SessionAudience())
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFoundErr())

	_, err := svc.Authenticate(ctx, "nobody@example.com", "whatever")
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	user := userWithPassword(t, testTargetID, "secret-password")
	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Authenticate(ctx, user.Email, "not-the-password")
	assert.ErrorContains(t, err, "invalid email or password")
	repo.users.AssertNotCalled(t, "BumpJWTIat", mock.Anything, mock.Anything)
}

func TestAuthenticate_SSOManagedAccount(t *testing.T) {
	repo := NewMockRepositoryManager()
	cfg := testConfig()
	cfg.SSOEnabled = true
	svc := accounts.NewService(repo, cfg)
	ctx := context.Background()

	origin := "saml"
	user := memberUser(testTargetID)
	user.Origin = &origin
	user.Credential = &accounts.Credential{UserID: testTargetID}
	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Authenticate(ctx, user.Email, "whatever")
	assert.ErrorContains(t, err, "SSO")
}

func TestAuthenticate_SSOAccountWrongLocalPassword(t *testing.T) {
	repo := NewMockRepositoryManager()
	cfg := testConfig()
	cfg.SSOEnabled = true
	svc := accounts.NewService(repo, cfg)
	ctx := context.Background()

	// SSO-managed account that also holds a local password: a failed
	// match still points at the identity provider
	origin := "saml"
	user := userWithPassword(t, testTargetID, "secret-password")
	user.Origin = &origin
	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Authenticate(ctx, user.Email, "not-the-password")
	assert.ErrorContains(t, err, "SSO")
	repo.users.AssertNotCalled(t, "BumpJWTIat", mock.Anything, mock.Anything)
}

func TestAuthenticate_SSODisabledUniformFailure(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	origin := "saml"
	user := memberUser(testTargetID)
	user.Origin = &origin
	user.Credential = &accounts.Credential{UserID: testTargetID}
	repo.users.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Authenticate(ctx, user.Email, "whatever")
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestAuthenticateSSO_IssuesToken(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	user := memberUser(testTargetID)
	internal := "idp-12345"
	user.InternalID = &internal
	iat := time.Now().UTC().Truncate(time.Second)

	repo.users.On("GetBySSOIdentity", ctx, user.Email, internal).Return(user, nil)
	repo.users.On("BumpJWTIat", ctx, testTargetID).Return(iat, nil)

	exp := 2 * time.Hour
	result, err := svc.AuthenticateSSO(ctx, user.Email, &internal, &exp)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	ts := accounts.NewTokenService([]byte("test-signing-key"), 24, "accounts-test", nil)
	claims, err := ts.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, iat.Add(exp).Unix(), claims.ExpiresAt.Unix())
}

func TestAuthenticateSSO_UnknownIdentity(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.users.On("GetBySSOIdentity", ctx, "nobody@example.com", "").Return(nil, notFoundErr())

	_, err := svc.AuthenticateSSO(ctx, "nobody@example.com", nil, nil)
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestAuthExists_WithinTolerance(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	stored := time.Now().UTC().Truncate(time.Second)
	user := memberUser(testTargetID)
	user.JWTIat = &stored

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(user, nil)

	for _, drift := range []time.Duration{0, time.Second, -time.Second} {
		ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, stored.Add(drift), "front:test")
		require.NoError(t, err)
		assert.True(t, ok, "drift %s should be tolerated", drift)
	}
}

func TestAuthExists_StaleWatermark(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	stored := time.Now().UTC().Truncate(time.Second)
	user := memberUser(testTargetID)
	user.JWTIat = &stored
	changed := stored.Add(-time.Hour)
	user.Credential = &accounts.Credential{UserID: testTargetID, ChangedAt: &changed}

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(user, nil)

	ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, stored.Add(-time.Minute), "front:test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthExists_PluginSurvivesWatermarkBump(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	stored := time.Now().UTC().Truncate(time.Second)
	user := memberUser(testTargetID)
	user.JWTIat = &stored
	changed := stored.Add(-time.Hour)
	user.Credential = &accounts.Credential{UserID: testTargetID, ChangedAt: &changed}

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(user, nil)

	// token older than the watermark but newer than the last password change
	ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, stored.Add(-time.Minute), "plugin:test")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthExists_PluginDiesOnPasswordChange(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	stored := time.Now().UTC().Truncate(time.Second)
	user := memberUser(testTargetID)
	user.JWTIat = &stored
	changed := stored.Add(-time.Minute)
	user.Credential = &accounts.Credential{UserID: testTargetID, ChangedAt: &changed}

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(user, nil)

	ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, changed.Add(-time.Hour), "plugin:test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthExists_NoWatermarkRejectsAllAudiences(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	// restored accounts come back with jwt_iat and changed_at both
	// NULL; a token minted before the restore must not resolve
	user := memberUser(testTargetID)
	user.Credential = &accounts.Credential{UserID: testTargetID}

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(user, nil)

	for _, audience := range []string{"front:test", "plugin:test"} {
		ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, time.Now(), audience)
		require.NoError(t, err)
		assert.False(t, ok, "audience %s", audience)
	}
}

func TestAuthExists_DeletedAccount(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.users.On("GetActive", ctx, testTenantID, testTargetID).Return(nil, notFoundErr())

	ok, err := svc.AuthExists(ctx, testTenantID, testTargetID, time.Now(), "front:test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvisionSSOUser_CreatesAccountWithoutPassword(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	internal := "idp-12345"
	repo.roles.On("Resolve", ctx, testTenantID, (*uuid.UUID)(nil)).Return(nil, nil)
	repo.ExpectTx()
	repo.users.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *accounts.User) bool {
		return u.Origin != nil && *u.Origin == "saml" && u.InternalID != nil
	})).Return(&accounts.User{
		ID:       testTargetID,
		TenantID: testTenantID,
		Email:    "sso.user@example.com",
		Role:     accounts.RoleMember,
	}, nil)
	repo.credentials.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(c *accounts.Credential) bool {
		return c.PasswordHash == nil && !c.GeneratedPassword
	})).Return(&accounts.Credential{UserID: testTargetID}, nil)

	member, err := svc.ProvisionSSOUser(ctx, testTenantID, accounts.SSOUserRequest{
		Email:      "sso.user@example.com",
		Origin:     "saml",
		InternalID: &internal,
	})
	require.NoError(t, err)
	assert.False(t, member.Joined)
	repo.credentials.AssertExpectations(t)
}

func TestRestoreSSOUser_ResetsCredential(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.roles.On("Resolve", ctx, testTenantID, (*uuid.UUID)(nil)).Return(nil, nil)
	repo.ExpectTx()
	repo.users.On("RestoreTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *accounts.User) bool {
		return u.ID == testTargetID && u.Origin != nil
	})).Return(&accounts.User{
		ID:       testTargetID,
		TenantID: testTenantID,
		Email:    "sso.user@example.com",
		Role:     accounts.RoleMember,
	}, nil)
	repo.credentials.On("ResetTx", mock.Anything, mock.Anything, testTargetID).Return(nil)

	member, err := svc.RestoreSSOUser(ctx, testTenantID, testTargetID, accounts.SSOUserRequest{
		Email:  "sso.user@example.com",
		Origin: "saml",
	})
	require.NoError(t, err)
	assert.Equal(t, testTargetID, member.ID)
	repo.credentials.AssertExpectations(t)
}

func TestRefreshJWTIat(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := newTestService(repo)
	ctx := context.Background()

	iat := time.Now().UTC()
	repo.users.On("BumpJWTIat", ctx, testTargetID).Return(iat, nil)

	got, err := svc.RefreshJWTIat(ctx, testTargetID)
	require.NoError(t, err)
	assert.Equal(t, iat, got)
}
