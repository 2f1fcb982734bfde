/*
Package jwks handles retrieval, caching and resolution of JSON Web Keys.

A Resolver searches an ordered list of configured Sources for the key that
signed a presented token. Each Source is backed by a shared in-memory Cache
whose entries are replaced wholesale on refresh, and documents are retrieved
by a Fetcher over HTTP with a bounded timeout.

Most users will not use this package directly; the validator package wires a
Resolver in behind its ValidateToken entry point.
*/
package jwks
