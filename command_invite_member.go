package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// InviteMemberMessage asks the service to invite a new member into a
// tenant on behalf of an admin.
type InviteMemberMessage struct {
	TenantID   uuid.UUID  `json:"tenantId" doc:"Tenant the member joins."`
	EditorID   uuid.UUID  `json:"editorId" doc:"Admin issuing the invitation."`
	Email      string     `json:"email" example:"pepe.rone@example.com" doc:"Invitee email."`
	Name       string     `json:"name" example:"Pepe Rone" doc:"Invitee display name."`
	Admin      bool       `json:"admin" doc:"Grant tenant admin rights."`
	RoleID     *uuid.UUID `json:"roleId" doc:"Explicit access role, defaults to the tenant's Member role."`
	OnResponse func(resp *InviteMemberResponse)
}

func (m InviteMemberMessage) Type() string { return "accounts.invite_member" }

type InviteMemberResponse struct {
	Member  *Member
	Success bool
}

// InviteMemberHandler adapts member invitations to the command bus.
type InviteMemberHandler struct {
	service *Service
}

func NewInviteMemberHandler(service *Service) *InviteMemberHandler {
	return &InviteMemberHandler{service: service}
}

func (h *InviteMemberHandler) Execute(ctx context.Context, event InviteMemberMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteMemberHandler) execute(ctx context.Context, event InviteMemberMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	member, err := h.service.CreateMember(ctx, event.TenantID, event.EditorID, NewMemberRequest{
		Email:  event.Email,
		Name:   event.Name,
		Admin:  event.Admin,
		RoleID: event.RoleID,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invite member")
	}

	if event.OnResponse != nil {
		event.OnResponse(&InviteMemberResponse{
			Member:  member,
			Success: true,
		})
	}

	return nil
}
