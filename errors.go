package accounts

import (
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// Business-rule failures are returned as rich errors carrying a
// category, a stable text code and user-displayable message. Only
// store or transaction failures are wrapped as CategoryInternal and
// treated as unrecoverable by callers.

// ErrUnauthorized is returned when the actor's role does not allow the action
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuthz).
	WithTextCode("UNAUTHORIZED").
	WithCode(goerrors.CodeForbidden)

// ErrMemberNotFound is returned when the target user is absent or already deleted
var ErrMemberNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("MEMBER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrEmailTaken is returned when the email belongs to an active member
var ErrEmailTaken = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrEmailPreviouslyDeleted is returned on edit when the email belongs
// to a soft-deleted account; that account must go through the
// invite/restore flow instead.
var ErrEmailPreviouslyDeleted = goerrors.New("email previously deleted", goerrors.CategoryConflict).
	WithTextCode("EMAIL_PREVIOUSLY_DELETED").
	WithCode(goerrors.CodeConflict)

// ErrInvalidName is returned when a member name fails validation
var ErrInvalidName = goerrors.New("invalid user name", goerrors.CategoryBadInput).
	WithTextCode("INVALID_NAME").
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidEmail is returned when an address fails validation
var ErrInvalidEmail = goerrors.New("invalid email address", goerrors.CategoryBadInput).
	WithTextCode("INVALID_EMAIL").
	WithCode(goerrors.CodeBadRequest)

// ErrAuthFailure is the uniform bad-credentials failure
var ErrAuthFailure = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrSSORequired distinguishes accounts that must sign in through the
// identity provider. Disclosing this on a failed password login is a
// deliberate usability trade-off against account enumeration.
var ErrSSORequired = goerrors.New("must sign-in with SSO", goerrors.CategoryAuth).
	WithTextCode("SSO_REQUIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrSSOAccount is returned when a password change is attempted on an
// account provisioned by an identity provider with no local password
var ErrSSOAccount = goerrors.New("cannot change your password because you are logged-in from an SSO service", goerrors.CategoryConflict).
	WithTextCode("SSO_ACCOUNT").
	WithCode(goerrors.CodeConflict)

// ErrSamePassword is returned when the new password equals the old one
var ErrSamePassword = goerrors.New("old and new password are the same", goerrors.CategoryBadInput).
	WithTextCode("SAME_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrCannotDeleteSelf is returned when a user tries to delete their own account
var ErrCannotDeleteSelf = goerrors.New("unauthorized, cannot delete self", goerrors.CategoryAuthz).
	WithTextCode("CANNOT_DELETE_SELF").
	WithCode(goerrors.CodeForbidden)

// ErrCannotDeleteOwner is returned when the target of a delete owns the tenant
var ErrCannotDeleteOwner = goerrors.New("cannot delete super admin", goerrors.CategoryAuthz).
	WithTextCode("CANNOT_DELETE_OWNER").
	WithCode(goerrors.CodeForbidden)

// ErrCannotChangeOwnRole is returned when a user edits their own admin flag
var ErrCannotChangeOwnRole = goerrors.New("cannot change your own role", goerrors.CategoryAuthz).
	WithTextCode("CANNOT_CHANGE_OWN_ROLE").
	WithCode(goerrors.CodeForbidden)

// IsConflict reports whether the error is one of the email conflicts
func IsConflict(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.Category == goerrors.CategoryConflict
}

// IsUnauthorized reports whether the error is an authorization failure
func IsUnauthorized(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.Category == goerrors.CategoryAuthz
}

// IsNotFound reports whether the error is a missing-member failure
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err) || repository.IsRecordNotFound(err)
}

// wrapStoreErr normalizes unexpected store failures; not-found records
// surface as ErrMemberNotFound, everything else is internal.
func wrapStoreErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return ErrMemberNotFound.Clone()
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
