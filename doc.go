/*
Package jwksmiddleware provides HTTP middleware that authenticates bearer
tokens against one or more remote JWKS endpoints.

The middleware extracts the token from the request, hands it to a
validator.Validator for signature and claim checking, and either stores the
authenticated identity in the request context or rejects the request with a
fixed JSON 401 body. Signing keys are resolved dynamically through the jwks
package, with per-source TTL caching and forced refetch on key rotation.

Minimal usage:

	cfg, err := jwksmiddleware.ConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	mw, err := jwksmiddleware.NewFromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/api/", mw.CheckJWT(apiHandler))

Handlers read the verified identity back with IdentityFromContext:

	identity, ok := jwksmiddleware.IdentityFromContext(r.Context())
	if ok {
		fmt.Println(identity.Subject)
	}

All authentication failures surface to clients as the same 401 response; the
internal failure category is only visible to the configured Logger and
Metrics implementations.
*/
package jwksmiddleware
