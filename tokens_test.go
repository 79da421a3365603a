package accounts_test

import (
	"strings"
	"testing"

	accounts "github.com/sessionlab/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestTokenGenerators(t *testing.T) {
	inv := accounts.NewInvitationToken()
	reset := accounts.NewResetToken()
	key := accounts.NewAPIKey()

	// 64, 8 and 20 source bytes, base64url expanded
	assert.Len(t, inv, 86)
	assert.Len(t, reset, 11)
	assert.Len(t, key, 27)

	for _, token := range []string{inv, reset, key} {
		assert.False(t, strings.ContainsAny(token, "+/="), "token must be URL safe: %s", token)
	}

	assert.NotEqual(t, accounts.NewInvitationToken(), accounts.NewInvitationToken())
}

func TestBuildInvitationLink(t *testing.T) {
	link := accounts.BuildInvitationLink("https://app.example.com/", "/invitation?token=%s", "abc123")
	assert.Equal(t, "https://app.example.com/invitation?token=abc123", link)

	link = accounts.BuildInvitationLink("https://app.example.com", "/invitation?token=%s", "abc123")
	assert.Equal(t, "https://app.example.com/invitation?token=abc123", link)
}
