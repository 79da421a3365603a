package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-print"
)

// BuildInvitationLink embeds a single-use token into the public
// invitation URL. Pure string templating: path must carry one %s verb.
func BuildInvitationLink(baseURL, path, token string) string {
	return strings.TrimSuffix(baseURL, "/") + fmt.Sprintf(path, token)
}

// dispatchInvitation sends the invitation email without blocking the
// request path. Delivery failures are logged and dropped: the invite
// already committed and the link is returned to the caller.
func (s *Service) dispatchInvitation(recipient, link, tenantName, senderName string) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.mailer.SendInvitation(ctx, recipient, link, tenantName, senderName); err != nil {
			s.logger.Warn("invitation email delivery failed",
				"error", err,
				"details", print.MaybePrettyJSON(map[string]any{
					"recipient": recipient,
					"tenant":    tenantName,
				}),
			)
		}
	}()
}

func (s *Service) tenantName(ctx context.Context, tenantID string) string {
	if s.tenants == nil {
		return ""
	}
	name, err := s.tenants.TenantName(ctx, tenantID)
	if err != nil {
		s.logger.Warn("tenant name lookup failed", "tenant_id", tenantID, "error", err)
		return ""
	}
	return name
}
