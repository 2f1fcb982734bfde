package jwks

import (
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Key is a single public key extracted from a JWKS document. It is owned by
// the cache entry that fetched it and never mutated after creation.
type Key struct {
	// KeyID is the kid published with the key. May be empty; keys without a
	// kid are kept as unindexed fallbacks within their entry.
	KeyID string

	// Type is the key family (RSA, EC, OKP).
	Type jwa.KeyType

	// Material is the parsed verification key.
	Material jwk.Key
}

// SupportsAlgorithm reports whether the key's family can verify signatures
// produced with alg. An RSA key must not be asked to verify an EC-alg header
// and vice versa; callers treat a mismatch as verification failure.
func (k Key) SupportsAlgorithm(alg jwa.SignatureAlgorithm) bool {
	switch alg {
	case jwa.RS256, jwa.RS384, jwa.RS512, jwa.PS256, jwa.PS384, jwa.PS512:
		return k.Type == jwa.RSA
	case jwa.ES256, jwa.ES384, jwa.ES512:
		return k.Type == jwa.EC
	case jwa.EdDSA:
		return k.Type == jwa.OKP
	default:
		return false
	}
}

// supportedKeyType reports whether the validator implements signature
// verification for keys of the given family.
func supportedKeyType(kty jwa.KeyType) bool {
	switch kty {
	case jwa.RSA, jwa.EC, jwa.OKP:
		return true
	default:
		return false
	}
}
