package accounts

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account service options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	// GetStage names the deployment stage embedded in token audiences,
	// e.g. "front:production".
	GetStage() string
	// GetSiteURL is the public base URL used to build invitation links
	GetSiteURL() string
	// GetInvitationPath is a printf template with one %s verb for the token
	GetInvitationPath() string
	// GetTokenExpiration is the token lifetime in hours
	GetTokenExpiration() int
	// GetResetTokenTTL is the validity window for self-service password
	// reset tokens
	GetResetTokenTTL() time.Duration
	// GetSSOEnabled reports whether an external identity provider is configured
	GetSSOEnabled() bool
}

// TokenIssuer mints session tokens. IssuedAt doubles as the revocation
// watermark: it must equal the jwt_iat column written right before the
// token is minted.
type TokenIssuer interface {
	Issue(userID, tenantID string, issuedAt time.Time, audience string, exp *time.Duration) (string, error)
}

// Mailer delivers invitation and password-reset email. Implementations
// are expected to be best-effort; the service never fails an operation
// on a mailer error.
type Mailer interface {
	SendInvitation(ctx context.Context, recipient, link, tenantName, senderName string) error
	SendPasswordReset(ctx context.Context, recipient, token string) error
}

// TenantDirectory resolves tenant display names for email payloads
type TenantDirectory interface {
	TenantName(ctx context.Context, tenantID string) (string, error)
}

// SSOAssertion is an identity pair already verified out-of-band by the
// identity provider. The service only persists and matches it.
type SSOAssertion struct {
	Email      string
	InternalID string
}

// SSOVerifier turns provider material (a SAML response, an IdP-issued
// JWT) into an SSOAssertion. Verification itself is external to this
// module; see provider/ssojwt for a JWKS-backed implementation.
type SSOVerifier interface {
	Verify(ctx context.Context, raw string) (*SSOAssertion, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
