package validator

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokengate/go-jwks-middleware/jwks"
)

func testRSAKey(t *testing.T, kid string) jwk.Key {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	return key
}

func testECKey(t *testing.T, kid string) jwk.Key {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	return key
}

// resolverKey converts a private signing key into the public candidate a
// resolver would hand back.
func resolverKey(t *testing.T, priv jwk.Key) jwks.Key {
	t.Helper()

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	return jwks.Key{KeyID: pub.KeyID(), Type: pub.KeyType(), Material: pub}
}

func signToken(t *testing.T, priv jwk.Key, alg jwa.SignatureAlgorithm, kid string, claims map[string]interface{}) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	hdrs := jws.NewHeaders()
	if kid != "" {
		require.NoError(t, hdrs.Set(jws.KeyIDKey, kid))
	}
	signed, err := jws.Sign(payload, jws.WithKey(alg, priv, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}

type stubResolver struct {
	keys  []jwks.Key
	err   error
	calls int
}

func (s *stubResolver) ResolveKeys(ctx context.Context, kid string) ([]jwks.Key, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.keys, nil
}

func Test_Validator_ValidateToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	priv := testRSAKey(t, "k1")
	resolver := &stubResolver{keys: []jwks.Key{resolverKey(t, priv)}}

	baseClaims := func() map[string]interface{} {
		return map[string]interface{}{
			"sub":   "user-1",
			"exp":   now.Add(time.Hour).Unix(),
			"iat":   now.Add(-time.Minute).Unix(),
			"aud":   "svc-a",
			"iss":   "https://issuer.example.com/",
			"scope": "read:items",
		}
	}

	newValidator := func(t *testing.T, opts ...Option) *Validator {
		t.Helper()
		opts = append([]Option{
			WithKeyResolver(resolver),
			WithAudience("svc-a"),
			WithIssuer("https://issuer.example.com/"),
			WithClock(clock),
		}, opts...)
		v, err := New(opts...)
		require.NoError(t, err)
		return v
	}

	t.Run("It accepts a well-formed RSA token and returns the identity", func(t *testing.T) {
		v := newValidator(t)
		token := signToken(t, priv, jwa.RS256, "k1", baseClaims())

		identity, err := v.ValidateToken(context.Background(), token)

		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.Subject)
		assert.Equal(t, "https://issuer.example.com/", identity.Registered.Issuer)
		assert.Equal(t, "read:items", identity.Claims["scope"])
	})

	t.Run("It accepts an EC token", func(t *testing.T) {
		ecPriv := testECKey(t, "ec-1")
		v, err := New(
			WithKeyResolver(&stubResolver{keys: []jwks.Key{resolverKey(t, ecPriv)}}),
			WithClock(clock),
		)
		require.NoError(t, err)
		token := signToken(t, ecPriv, jwa.ES256, "ec-1", baseClaims())

		identity, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.Subject)
	})

	t.Run("It rejects an empty token as missing", func(t *testing.T) {
		v := newValidator(t)

		_, err := v.ValidateToken(context.Background(), "")

		assert.ErrorIs(t, err, ErrTokenInvalid)
		assert.Equal(t, CategoryMissingToken, CategoryOf(err))
	})

	t.Run("It rejects structural garbage as malformed", func(t *testing.T) {
		v := newValidator(t)

		for _, token := range []string{"garbage", "a.b", "a.b.c.d", "!!.@@.##"} {
			_, err := v.ValidateToken(context.Background(), token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.Equal(t, CategoryMalformedToken, CategoryOf(err), "token %q", token)
		}
	})

	t.Run("It rejects an expired token", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["exp"] = now.Add(-10 * time.Second).Unix()
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, CategoryClaimRejected, authErr.Category)
		assert.Equal(t, RejectionExpired, authErr.Rejection)
	})

	t.Run("It rejects a token with no exp claim as expired", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		delete(claims, "exp")
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionExpired, authErr.Rejection)
	})

	t.Run("It rejects a token issued in the future", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["iat"] = now.Add(90 * time.Second).Unix()
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionNotYetValid, authErr.Rejection)
	})

	t.Run("It tolerates a future iat within the configured skew", func(t *testing.T) {
		v := newValidator(t, WithClockSkew(2*time.Minute))
		claims := baseClaims()
		claims["iat"] = now.Add(90 * time.Second).Unix()
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
	})

	t.Run("It rejects a token used before its nbf", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["nbf"] = now.Add(10 * time.Minute).Unix()
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionNotYetValid, authErr.Rejection)
	})

	t.Run("It rejects an audience mismatch", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["aud"] = "svc-b"
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionAudienceMismatch, authErr.Rejection)
	})

	t.Run("It accepts an audience array holding the expected value", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["aud"] = []string{"svc-b", "svc-a"}
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
	})

	t.Run("It rejects an issuer mismatch", func(t *testing.T) {
		v := newValidator(t)
		claims := baseClaims()
		claims["iss"] = "https://rogue.example.com/"
		token := signToken(t, priv, jwa.RS256, "k1", claims)

		_, err := v.ValidateToken(context.Background(), token)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionIssuerMismatch, authErr.Rejection)
	})

	t.Run("It maps an unknown kid to a key resolution failure", func(t *testing.T) {
		resErr := &jwks.ResolutionError{KeyID: "unknown"}
		v, err := New(WithKeyResolver(&stubResolver{err: resErr}), WithClock(clock))
		require.NoError(t, err)
		token := signToken(t, priv, jwa.RS256, "unknown", baseClaims())

		_, err = v.ValidateToken(context.Background(), token)

		assert.Equal(t, CategoryKeyResolutionFailed, CategoryOf(err))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("It maps fully unreachable sources to upstream unavailable", func(t *testing.T) {
		resErr := &jwks.ResolutionError{KeyID: "k1", Unreachable: true}
		v, err := New(WithKeyResolver(&stubResolver{err: resErr}), WithClock(clock))
		require.NoError(t, err)
		token := signToken(t, priv, jwa.RS256, "k1", baseClaims())

		_, err = v.ValidateToken(context.Background(), token)

		assert.Equal(t, CategoryUpstreamUnavailable, CategoryOf(err))
	})

	t.Run("It rejects a token signed by the wrong key", func(t *testing.T) {
		v := newValidator(t)
		imposter := testRSAKey(t, "k1")
		token := signToken(t, imposter, jwa.RS256, "k1", baseClaims())

		_, err := v.ValidateToken(context.Background(), token)

		assert.Equal(t, CategorySignatureInvalid, CategoryOf(err))
	})

	t.Run("It rejects a token whose alg disagrees with the key family", func(t *testing.T) {
		// Resolver serves an RSA key; the token declares ES256.
		v := newValidator(t)
		ecPriv := testECKey(t, "k1")
		token := signToken(t, ecPriv, jwa.ES256, "k1", baseClaims())

		_, err := v.ValidateToken(context.Background(), token)

		assert.Equal(t, CategorySignatureInvalid, CategoryOf(err))
	})

	t.Run("It accepts a token without a kid against a single-key source", func(t *testing.T) {
		v := newValidator(t)
		token := signToken(t, priv, jwa.RS256, "", baseClaims())

		identity, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.Subject)
	})

	t.Run("It returns the same identity for repeated validations", func(t *testing.T) {
		v := newValidator(t)
		token := signToken(t, priv, jwa.RS256, "k1", baseClaims())

		first, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		second, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(first, second))
	})

	t.Run("It requires a key resolver", func(t *testing.T) {
		_, err := New(WithAudience("svc-a"))
		assert.Error(t, err)
	})
}

func Test_Validator_DecisionCache(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	priv := testRSAKey(t, "k1")

	t.Run("It serves a hot token without re-resolving keys", func(t *testing.T) {
		resolver := &stubResolver{keys: []jwks.Key{resolverKey(t, priv)}}
		v, err := New(
			WithKeyResolver(resolver),
			WithClock(func() time.Time { return now }),
			WithDecisionCache(16, time.Minute),
		)
		require.NoError(t, err)
		token := signToken(t, priv, jwa.RS256, "k1", map[string]interface{}{
			"sub": "user-1",
			"exp": now.Add(time.Hour).Unix(),
		})

		for i := 0; i < 3; i++ {
			_, err := v.ValidateToken(context.Background(), token)
			require.NoError(t, err)
		}

		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("It never serves a cached decision past the token's exp", func(t *testing.T) {
		clock := &struct {
			now time.Time
		}{now: now}
		resolver := &stubResolver{keys: []jwks.Key{resolverKey(t, priv)}}
		v, err := New(
			WithKeyResolver(resolver),
			WithClock(func() time.Time { return clock.now }),
			WithDecisionCache(16, time.Hour),
		)
		require.NoError(t, err)
		token := signToken(t, priv, jwa.RS256, "k1", map[string]interface{}{
			"sub": "user-1",
			"exp": now.Add(10 * time.Second).Unix(),
		})

		_, err = v.ValidateToken(context.Background(), token)
		require.NoError(t, err)

		clock.now = now.Add(time.Minute)

		_, err = v.ValidateToken(context.Background(), token)
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, RejectionExpired, authErr.Rejection)
		assert.Equal(t, 2, resolver.calls)
	})
}

// Test_Validator_LiveResolver exercises the validator against a real
// resolver backed by an httptest JWKS endpoint.
func Test_Validator_LiveResolver(t *testing.T) {
	priv := testRSAKey(t, "live-1")
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	t.Run("It validates end to end against a live endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		}))
		t.Cleanup(server.Close)

		resolver := jwks.NewResolver(jwks.NewSources([]string{server.URL}, time.Hour))
		v, err := New(WithKeyResolver(resolver))
		require.NoError(t, err)

		token := signToken(t, priv, jwa.RS256, "live-1", map[string]interface{}{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		identity, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.Subject)
	})

	t.Run("It reports upstream unavailable when every endpoint is down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		resolver := jwks.NewResolver(jwks.NewSources([]string{url}, time.Hour))
		v, err := New(WithKeyResolver(resolver))
		require.NoError(t, err)

		token := signToken(t, priv, jwa.RS256, "live-1", map[string]interface{}{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err = v.ValidateToken(context.Background(), token)
		assert.Equal(t, CategoryUpstreamUnavailable, CategoryOf(err))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
