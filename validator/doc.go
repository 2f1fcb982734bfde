/*
Package validator decides whether a presented bearer token is acceptable.

ValidateToken is the single entry point: it decodes the token, resolves the
signing key through a jwks.Resolver, verifies the signature with jwx and
checks the registered claims against the configured expectations. Every
failure is returned as a single *AuthError carrying a Category; nothing else
escapes the boundary.

The Validator holds no mutable state of its own and is safe for concurrent
use.
*/
package validator
