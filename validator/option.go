package validator

import (
	"errors"
	"time"
)

// Option configures a Validator. Options return errors so misconfiguration
// is caught at construction time.
type Option func(*Validator) error

// WithKeyResolver sets the key resolver used to locate verification keys.
// Required.
func WithKeyResolver(resolver KeyResolver) Option {
	return func(v *Validator) error {
		if resolver == nil {
			return errors.New("key resolver cannot be nil")
		}
		v.resolver = resolver
		return nil
	}
}

// WithAudience sets the expected aud claim. Tokens whose audience neither
// equals nor contains the value are rejected. Unset means no audience check.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		v.expectedAudience = audience
		return nil
	}
}

// WithIssuer sets the expected iss claim, matched exactly. Unset means no
// issuer check.
func WithIssuer(issuer string) Option {
	return func(v *Validator) error {
		v.expectedIssuer = issuer
		return nil
	}
}

// WithClockSkew sets the allowance applied when checking iat and nbf
// against the current time. Default 0.
func WithClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.clockSkew = skew
		return nil
	}
}

// WithDecisionCache enables the positive-result cache, bounded to size
// entries and ttl per entry. A token's own exp always wins over ttl.
func WithDecisionCache(size int, ttl time.Duration) Option {
	return func(v *Validator) error {
		if size <= 0 {
			return errors.New("decision cache size must be positive")
		}
		v.decisions = newDecisionCache(size, ttl)
		return nil
	}
}

// WithLogger sets the validator's logger.
func WithLogger(logger Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}

// WithClock overrides the validator's time source. Tests use this to pin
// now against claim deadlines.
func WithClock(clock func() time.Time) Option {
	return func(v *Validator) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		v.clock = clock
		return nil
	}
}
