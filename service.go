package accounts

import (
	"time"
)

// Service is the account service: member lifecycle, credentials and
// authentication for tenant members. It is safe for concurrent use;
// every mutation runs in its own store transaction.
type Service struct {
	repo             RepositoryManager
	tokens           TokenIssuer
	mailer           Mailer
	tenants          TenantDirectory
	config           Config
	logger           Logger
	now              func() time.Time
	deterministicIDs bool
}

// NewService returns a configured account service
func NewService(repo RepositoryManager, cfg Config) *Service {
	return &Service{
		repo:   repo,
		config: cfg,
		tokens: NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), cfg.GetIssuer(), defLogger{}),
		logger: defLogger{},
		now:    time.Now,
	}
}

func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenIssuer overrides the default HS256 token service
func (s *Service) WithTokenIssuer(issuer TokenIssuer) *Service {
	if issuer != nil {
		s.tokens = issuer
	}
	return s
}

// WithMailer configures invitation and reset email delivery
func (s *Service) WithMailer(mailer Mailer) *Service {
	s.mailer = mailer
	return s
}

// WithTenantDirectory configures tenant display-name lookups for email
// payloads
func (s *Service) WithTenantDirectory(tenants TenantDirectory) *Service {
	s.tenants = tenants
	return s
}

// WithClock injects a custom clock (useful for tests)
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithDeterministicSSOIDs derives SSO account ids from the email
// address instead of random UUIDs, so re-provisioning is idempotent.
func (s *Service) WithDeterministicSSOIDs() *Service {
	s.deterministicIDs = true
	return s
}

func (s *Service) resetTokenTTL() time.Duration {
	if ttl := s.config.GetResetTokenTTL(); ttl > 0 {
		return ttl
	}
	return 10 * time.Minute
}

func (s *Service) invitationLink(token string) string {
	return BuildInvitationLink(s.config.GetSiteURL(), s.config.GetInvitationPath(), token)
}
