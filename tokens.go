package accounts

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	invitationTokenBytes = 64
	resetTokenBytes      = 8
	apiKeyBytes          = 20
)

// NewInvitationToken returns a single-use, URL-safe invitation token
func NewInvitationToken() string {
	return urlSafeToken(invitationTokenBytes)
}

// NewResetToken returns a single-use password-reset token
func NewResetToken() string {
	return urlSafeToken(resetTokenBytes)
}

// NewAPIKey returns a fresh API key for a member
func NewAPIKey() string {
	return urlSafeToken(apiKeyBytes)
}

func urlSafeToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
