package ssojwt

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	accounts "github.com/sessionlab/go-accounts"
)

// Verifier checks identity-provider JWTs against the provider's JWK Set
// and extracts the email/internal-id pair the account service matches
// on. It implements accounts.SSOVerifier.
type Verifier struct {
	config  Config
	keyFunc jwt.Keyfunc
	close   func()
}

// NewVerifier builds a Verifier with a background-refreshing JWKS
// cache.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.JWKSetURL == "" {
		return nil, fmt.Errorf("ssojwt: JWK Set URL is required")
	}

	jwks, err := keyfunc.Get(cfg.JWKSetURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   cfg.refreshInterval(),
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ssojwt: failed to get JWK Set: %w", err)
	}

	return &Verifier{
		config:  cfg,
		keyFunc: jwks.Keyfunc,
		close:   jwks.EndBackground,
	}, nil
}

// Close stops the background key refresh.
func (v *Verifier) Close() {
	if v.close != nil {
		v.close()
	}
}

// Verify implements accounts.SSOVerifier.
func (v *Verifier) Verify(ctx context.Context, raw string) (*accounts.SSOAssertion, error) {
	claims := jwt.MapClaims{}

	opts := []jwt.ParserOption{}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, normalizeValidationError(err)
	}

	if !token.Valid {
		return nil, accounts.ErrTokenMalformed.Clone()
	}

	email, _ := claims[v.config.emailClaim()].(string)
	if email == "" {
		return nil, accounts.ErrTokenMalformed.Clone().WithMetadata(map[string]any{
			"claim": v.config.emailClaim(),
		})
	}

	assertion := &accounts.SSOAssertion{Email: email}
	if v.config.SubjectAsInternalID {
		if sub, err := claims.GetSubject(); err == nil {
			assertion.InternalID = sub
		}
	}

	return assertion, nil
}

func normalizeValidationError(err error) error {
	if err == nil {
		return nil
	}

	clone := accounts.ErrTokenMalformed.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = accounts.ErrTokenExpired.Clone()
	}

	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "ssojwt",
		"cause":    err.Error(),
	})
}
