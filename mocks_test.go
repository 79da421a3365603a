package accounts_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	accounts "github.com/sessionlab/go-accounts"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements accounts.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users       *MockUsers
	credentials *MockCredentials
	roles       *MockRoles
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:       &MockUsers{},
		credentials: &MockCredentials{},
		roles:       &MockRoles{},
	}
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

// ExpectTx wires RunInTx so the given function executes against a zero
// bun.Tx; repository Tx methods are expected on the child mocks.
func (m *MockRepositoryManager) ExpectTx() *mock.Call {
	return m.On("RunInTx", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			_ = fn(context.Background(), bun.Tx{})
		}).
		Return(nil)
}

func (m *MockRepositoryManager) Users() accounts.Users {
	return m.users
}

func (m *MockRepositoryManager) Credentials() accounts.Credentials {
	return m.credentials
}

func (m *MockRepositoryManager) Roles() accounts.Roles {
	return m.roles
}

// MockUsers implements accounts.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetActive(ctx context.Context, tenantID, userID uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, tenantID, userID)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetActiveTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, tx, tenantID, userID)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetDeletedByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetDeletedByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetBySSOIdentity(ctx context.Context, email, internalID string) (*accounts.User, error) {
	args := m.Called(ctx, email, internalID)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByInvitationToken(ctx context.Context, token string, resetToken *string) (*accounts.User, error) {
	args := m.Called(ctx, token, resetToken)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context, tenantID uuid.UUID) ([]*accounts.User, error) {
	args := m.Called(ctx, tenantID)
	users, _ := args.Get(0).([]*accounts.User)
	return users, args.Error(1)
}

func (m *MockUsers) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) RestoreTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) ApplyTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID, cols map[string]any) error {
	args := m.Called(ctx, tx, tenantID, userID, cols)
	return args.Error(0)
}

func (m *MockUsers) SoftDeleteTx(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID) error {
	args := m.Called(ctx, tx, tenantID, userID)
	return args.Error(0)
}

func (m *MockUsers) BumpJWTIat(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, userID)
	iat, _ := args.Get(0).(time.Time)
	return iat, args.Error(1)
}

func (m *MockUsers) BumpJWTIatTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, tx, userID)
	iat, _ := args.Get(0).(time.Time)
	return iat, args.Error(1)
}

func (m *MockUsers) SetAPIKey(ctx context.Context, userID uuid.UUID, key string) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

// MockCredentials implements accounts.Credentials
type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) GetByUserID(ctx context.Context, userID uuid.UUID) (*accounts.Credential, error) {
	args := m.Called(ctx, userID)
	cred, _ := args.Get(0).(*accounts.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentials) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*accounts.Credential, error) {
	args := m.Called(ctx, tx, userID)
	cred, _ := args.Get(0).(*accounts.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentials) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Credential) (*accounts.Credential, error) {
	args := m.Called(ctx, tx, record)
	cred, _ := args.Get(0).(*accounts.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentials) SetInvitationTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string, at time.Time) error {
	args := m.Called(ctx, tx, userID, token, at)
	return args.Error(0)
}

func (m *MockCredentials) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expireAt time.Time) error {
	args := m.Called(ctx, userID, token, expireAt)
	return args.Error(0)
}

func (m *MockCredentials) ClearPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockCredentials) ResetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockCredentials) ApplyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, cols map[string]any) error {
	args := m.Called(ctx, tx, userID, cols)
	return args.Error(0)
}

// MockRoles implements accounts.Roles
type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) GetByID(ctx context.Context, tenantID, roleID uuid.UUID) (*accounts.Role, error) {
	args := m.Called(ctx, tenantID, roleID)
	role, _ := args.Get(0).(*accounts.Role)
	return role, args.Error(1)
}

func (m *MockRoles) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*accounts.Role, error) {
	args := m.Called(ctx, tenantID, name)
	role, _ := args.Get(0).(*accounts.Role)
	return role, args.Error(1)
}

func (m *MockRoles) Resolve(ctx context.Context, tenantID uuid.UUID, roleID *uuid.UUID) (*accounts.Role, error) {
	args := m.Called(ctx, tenantID, roleID)
	role, _ := args.Get(0).(*accounts.Role)
	return role, args.Error(1)
}

func (m *MockRoles) ResolveTx(ctx context.Context, tx bun.IDB, tenantID uuid.UUID, roleID *uuid.UUID) (*accounts.Role, error) {
	args := m.Called(ctx, tx, tenantID, roleID)
	role, _ := args.Get(0).(*accounts.Role)
	return role, args.Error(1)
}

// MockTokenIssuer implements accounts.TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(userID, tenantID string, issuedAt time.Time, audience string, exp *time.Duration) (string, error) {
	args := m.Called(userID, tenantID, issuedAt, audience, exp)
	return args.String(0), args.Error(1)
}

// MockMailer implements accounts.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendInvitation(ctx context.Context, recipient, link, tenantName, senderName string) error {
	args := m.Called(ctx, recipient, link, tenantName, senderName)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, recipient, token string) error {
	args := m.Called(ctx, recipient, token)
	return args.Error(0)
}

// MockConfig implements accounts.Config
type MockConfig struct {
	SigningKey      string
	Issuer          string
	Stage           string
	SiteURL         string
	InvitationPath  string
	TokenExpiration int
	ResetTokenTTL   time.Duration
	SSOEnabled      bool
}

func testConfig() *MockConfig {
	return &MockConfig{
		SigningKey:      "test-signing-key",
		Issuer:          "accounts-test",
		Stage:           "test",
		SiteURL:         "https://app.example.com",
		InvitationPath:  "/invitation?token=%s",
		TokenExpiration: 24,
	}
}

func (c *MockConfig) GetSigningKey() string           { return c.SigningKey }
func (c *MockConfig) GetIssuer() string               { return c.Issuer }
func (c *MockConfig) GetStage() string                { return c.Stage }
func (c *MockConfig) GetSiteURL() string              { return c.SiteURL }
func (c *MockConfig) GetInvitationPath() string       { return c.InvitationPath }
func (c *MockConfig) GetTokenExpiration() int         { return c.TokenExpiration }
func (c *MockConfig) GetResetTokenTTL() time.Duration { return c.ResetTokenTTL }
func (c *MockConfig) GetSSOEnabled() bool             { return c.SSOEnabled }
