// Package accounts manages tenant member accounts: lifecycle,
// credentials, and session tokens.
//
// Member lifecycle:
//   - Members are invited by a tenant admin and start with a generated
//     password plus a single-use invitation token. Setting a password
//     through the invitation link activates the account; deleting a
//     member soft-deletes the row and wipes the password, so the same
//     email can later be re-invited into the account it used to own.
//   - AccountState derives the lifecycle position from the stored
//     credential; EnsureTransition guards the moves that mutate it.
//
// Credentials:
//   - Passwords are bcrypt-hashed and live in a separate credential
//     record, one per account. Password resets arm a short-lived token;
//     completing either flow voids every outstanding token in the same
//     transaction that writes the new hash.
//   - SSO-provisioned accounts carry an origin marker and no local
//     password. Password logins bounce them to their identity provider;
//     see provider/ssojwt for assertion verification.
//
// Sessions:
//   - Tokens are HS256 JWTs whose issued-at doubles as a per-account
//     revocation watermark: a successful login advances the watermark
//     and mints against it, so earlier front-app sessions die. Plugin
//     audiences are only revoked by an actual password change.
package accounts
