package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// InitializePasswordResetMessage arms a reset token for the account
// that owns the given email. Unknown addresses succeed silently so the
// endpoint cannot be used to enumerate accounts.
type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (m InitializePasswordResetMessage) Type() string { return "accounts.password_reset" }

type InitializePasswordResetResponse struct {
	Token   string
	Success bool
}

// InitializePasswordResetHandler adapts the reset flow to the command
// bus: resolve the email, arm the token, hand it to the mailer.
type InitializePasswordResetHandler struct {
	service *Service
	mailer  Mailer
}

func NewInitializePasswordResetHandler(service *Service, mailer Mailer) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{service: service, mailer: mailer}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &InitializePasswordResetResponse{}

	member, err := h.service.GetByEmail(ctx, event.Email)
	if err != nil {
		if IsNotFound(err) {
			// same outcome as a real reset, minus the email
			resp.Success = true
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account for password reset")
	}

	token, err := h.service.AllowPasswordChange(ctx, member.ID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to arm password reset")
	}

	if h.mailer != nil {
		if err := h.mailer.SendPasswordReset(ctx, member.Email, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send password reset email")
		}
	}

	resp.Token = token
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
