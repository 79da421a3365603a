// Package ssojwt verifies identity-provider JWTs against a JWK Set and
// maps them to account assertions.
//
// Use this package as the accounts.SSOVerifier when the identity
// provider hands sessions over as signed JWTs; the account service only
// sees the verified email/internal-id pair.
package ssojwt
