package validator

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/tokengate/go-jwks-middleware/jwks"
)

// KeyResolver locates candidate verification keys for a token's declared
// key id. *jwks.Resolver implements it; tests substitute fakes.
type KeyResolver interface {
	ResolveKeys(ctx context.Context, kid string) ([]jwks.Key, error)
}

// Logger is the logging interface consumed by this package. The middleware
// package's zap, zerolog and logrus adapters satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Validator is the validation entry point. It coordinates key resolution and
// signature plus claim checking, and folds every failure into one
// *AuthError at its boundary.
type Validator struct {
	resolver         KeyResolver
	expectedAudience string
	expectedIssuer   string
	clockSkew        time.Duration
	logger           Logger
	decisions        *decisionCache
	clock            func() time.Time
}

// New builds a Validator. A key resolver is required; audience and issuer
// expectations are optional and enforced only when set.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		logger: nopLogger{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	if v.resolver == nil {
		return nil, errors.New("a key resolver is required (use WithKeyResolver)")
	}
	return v, nil
}

// ValidateToken validates the raw token string and returns the
// authenticated identity, or a *AuthError describing why it was rejected.
// Acceptance requires structural decode success, signature verification
// against a key drawn from a configured source, and every claim check
// passing.
func (v *Validator) ValidateToken(ctx context.Context, token string) (*AuthenticatedIdentity, error) {
	now := v.clock()

	if token == "" {
		return nil, NewAuthError(CategoryMissingToken, "no token presented", nil)
	}

	if v.decisions != nil {
		if identity, ok := v.decisions.get(token, now); ok {
			return identity, nil
		}
	}

	if err := checkTokenFormat(token); err != nil {
		return nil, NewAuthError(CategoryMalformedToken, "token failed structural checks", err)
	}

	hdr, claims, raw, err := decodeHeaderAndClaims(token)
	if err != nil {
		return nil, NewAuthError(CategoryMalformedToken, "could not decode token", err)
	}

	keys, err := v.resolver.ResolveKeys(ctx, hdr.kid)
	if err != nil {
		var resErr *jwks.ResolutionError
		if errors.As(err, &resErr) && resErr.Unreachable {
			return nil, NewAuthError(CategoryUpstreamUnavailable, "all key sources unreachable", err)
		}
		return nil, NewAuthError(CategoryKeyResolutionFailed, "could not resolve a verification key", err)
	}

	if !v.verifySignature(token, hdr, keys) {
		return nil, NewAuthError(CategorySignatureInvalid, "signature verification failed", nil)
	}

	if rejectErr := v.checkClaims(claims, now); rejectErr != nil {
		return nil, rejectErr
	}

	identity := &AuthenticatedIdentity{
		Subject:    claims.Subject,
		Registered: claims,
		Claims:     raw,
	}

	if v.decisions != nil && claims.Expiry != nil {
		v.decisions.put(token, identity, time.Unix(*claims.Expiry, 0), now)
	}

	v.logger.Debugf("token validated for subject %q", claims.Subject)
	return identity, nil
}

// verifySignature checks the signed portion of the token against each
// candidate key. A key whose family disagrees with the header algorithm is
// skipped; that mismatch is verification failure, not a distinct error.
func (v *Validator) verifySignature(token string, hdr tokenHeader, keys []jwks.Key) bool {
	for _, key := range keys {
		if !key.SupportsAlgorithm(hdr.alg) {
			continue
		}
		if _, err := jws.Verify([]byte(token), jws.WithKey(hdr.alg, key.Material)); err == nil {
			return true
		}
	}
	return false
}

// checkClaims applies the registered claim checks. exp is required and must
// be in the future; iat and nbf must not be in the future beyond the
// configured clock skew; audience and issuer are enforced only when the
// validator was configured with expectations.
func (v *Validator) checkClaims(claims TokenClaims, now time.Time) *AuthError {
	if claims.Expiry == nil {
		return newClaimError(RejectionExpired, "token carries no exp claim")
	}
	if !now.Before(time.Unix(*claims.Expiry, 0)) {
		return newClaimError(RejectionExpired, "token is expired")
	}

	if claims.IssuedAt != nil && time.Unix(*claims.IssuedAt, 0).After(now.Add(v.clockSkew)) {
		return newClaimError(RejectionNotYetValid, "token issued in the future")
	}
	if claims.NotBefore != nil && time.Unix(*claims.NotBefore, 0).After(now.Add(v.clockSkew)) {
		return newClaimError(RejectionNotYetValid, "token not valid yet")
	}

	if v.expectedAudience != "" && !claims.Audience.Contains(v.expectedAudience) {
		return newClaimError(RejectionAudienceMismatch, "token audience does not match")
	}
	if v.expectedIssuer != "" && claims.Issuer != v.expectedIssuer {
		return newClaimError(RejectionIssuerMismatch, "token issuer does not match")
	}

	return nil
}
