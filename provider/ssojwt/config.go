package ssojwt

import (
	"strings"
	"time"
)

// Config holds identity-provider settings for assertion verification.
type Config struct {
	// JWKSetURL is the provider's JWK Set endpoint.
	JWKSetURL string

	// Issuer is the expected iss claim (optional).
	Issuer string

	// Audience is the expected aud claim (optional).
	Audience string

	// EmailClaim names the claim carrying the account email.
	// Default: "email".
	EmailClaim string

	// SubjectAsInternalID stores the provider's sub claim as the
	// account's internal id. Default: true.
	SubjectAsInternalID bool

	// RefreshInterval is how often the key set is refreshed in the
	// background. Default: 1 hour.
	RefreshInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(jwkSetURL string) Config {
	return Config{
		JWKSetURL:           strings.TrimSpace(jwkSetURL),
		EmailClaim:          "email",
		SubjectAsInternalID: true,
		RefreshInterval:     time.Hour,
	}
}

func (c Config) emailClaim() string {
	if c.EmailClaim != "" {
		return c.EmailClaim
	}
	return "email"
}

func (c Config) refreshInterval() time.Duration {
	if c.RefreshInterval > 0 {
		return c.RefreshInterval
	}
	return time.Hour
}
