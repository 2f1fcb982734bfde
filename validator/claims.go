package validator

import (
	"encoding/json"
	"fmt"
)

// Audience is a claim value that RFC 7519 permits as either a single string
// or an array of strings. It unmarshals both shapes.
type Audience []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*a = Audience(many)
		return nil
	}
	return fmt.Errorf("aud claim is neither a string nor an array of strings")
}

// Contains reports whether the audience holds the given value.
func (a Audience) Contains(value string) bool {
	for _, v := range a {
		if v == value {
			return true
		}
	}
	return false
}

// TokenClaims is the registered claim set read from a presented token before
// validation completes. Pointer fields distinguish absent claims from zero
// values; exp in particular is required and its absence is a rejection.
type TokenClaims struct {
	// Subject identifies the principal. Informational only; it is never
	// used to authorize.
	Subject string `json:"sub,omitempty"`

	// Expiry is seconds since epoch. Required.
	Expiry *int64 `json:"exp,omitempty"`

	// IssuedAt is seconds since epoch.
	IssuedAt *int64 `json:"iat,omitempty"`

	// NotBefore is seconds since epoch.
	NotBefore *int64 `json:"nbf,omitempty"`

	// Audience is the intended recipient set.
	Audience Audience `json:"aud,omitempty"`

	// Issuer identifies the token's origin.
	Issuer string `json:"iss,omitempty"`
}

// AuthenticatedIdentity is the successful validation result. It carries the
// verified subject and the raw claim set forward to the caller; the
// validator retains no reference after returning it.
type AuthenticatedIdentity struct {
	// Subject is the verified sub claim. May be empty if the token
	// carried none.
	Subject string

	// Registered holds the decoded registered claims.
	Registered TokenClaims

	// Claims is the full raw claim map, including any custom claims.
	Claims map[string]interface{}
}
