package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// AccountState is the derived lifecycle state of an account. It is not
// stored; it is a function of the profile and credential columns.
type AccountState string

const (
	// StateNoCredential is a pure-SSO account with no local password
	StateNoCredential AccountState = "no-credential"
	// StateInvited has an outstanding invitation token and no password
	StateInvited AccountState = "invited"
	// StateActiveGenerated has a system-generated password that must be replaced
	StateActiveGenerated AccountState = "active-generated-password"
	// StateActive has a user-chosen password
	StateActive AccountState = "active"
	// StatePendingReset has a live change-password token
	StatePendingReset AccountState = "pending-reset"
	// StateDeleted is terminal
	StateDeleted AccountState = "deleted"
)

// ErrInvalidTransition is returned when a lifecycle change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryConflict).
	WithTextCode("INVALID_ACCOUNT_TRANSITION").
	WithCode(goerrors.CodeConflict)

var accountTransitions = map[AccountState][]AccountState{
	StateInvited:         {StateActiveGenerated, StateActive, StateDeleted, StateInvited},
	StateActiveGenerated: {StateActive, StatePendingReset, StateDeleted},
	StateActive:          {StatePendingReset, StateDeleted},
	StatePendingReset:    {StateActive, StateDeleted},
	StateNoCredential:    {StateDeleted},
	// deleted is terminal except for the restore path, which re-invites
	StateDeleted: {StateInvited},
}

// StateOf derives the lifecycle state from a user and its credential
func StateOf(u *User) AccountState {
	if u == nil {
		return StateDeleted
	}
	if u.DeletedAt != nil {
		return StateDeleted
	}

	c := u.Credential
	if c == nil || c.PasswordHash == nil {
		if u.SSOProvisioned() && (c == nil || c.InvitationToken == nil) {
			return StateNoCredential
		}
		return StateInvited
	}

	if c.ChangePwdToken != nil {
		return StatePendingReset
	}

	if c.GeneratedPassword {
		return StateActiveGenerated
	}

	return StateActive
}

// CanTransition reports whether moving from one state to another is allowed
func CanTransition(from, to AccountState) bool {
	for _, next := range accountTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition validates a lifecycle change, returning a rich error
// naming both states when the move is not allowed.
func EnsureTransition(from, to AccountState) error {
	if CanTransition(from, to) {
		return nil
	}
	return ErrInvalidTransition.Clone().WithMetadata(map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}
