package accounts

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience prefixes distinguish interactive front-end sessions from
// headless plugin sessions; the suffix names the deployment stage.
const (
	AudienceFrontPrefix  = "front"
	AudiencePluginPrefix = "plugin"
)

// FrontAudience builds the audience for browser sessions
func FrontAudience(stage string) string {
	return AudienceFrontPrefix + ":" + stage
}

// PluginAudience builds the audience for headless tracker/plugin sessions
func PluginAudience(stage string) string {
	return AudiencePluginPrefix + ":" + stage
}

// IsPluginAudience reports whether the audience belongs to a headless
// session, which gets the relaxed issued-at rule in AuthExists.
func IsPluginAudience(aud string) bool {
	return strings.HasPrefix(aud, AudiencePluginPrefix+":")
}

// AccountClaims is the session token payload
type AccountClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenantId,omitempty"`
}

// UserID returns the subject claim
func (c *AccountClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// IssuedAtTime returns the embedded watermark, zero when absent
func (c *AccountClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// SessionAudience returns the first audience entry, empty when unset
func (c *AccountClaims) SessionAudience() string {
	if len(c.RegisteredClaims.Audience) == 0 {
		return ""
	}
	return c.RegisteredClaims.Audience[0]
}
