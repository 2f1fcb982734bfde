package jwksmiddleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/tokengate/go-jwks-middleware/jwks"
	"github.com/tokengate/go-jwks-middleware/validator"
)

// URLList decodes a comma-separated list of URLs from a single value.
type URLList []string

// Decode implements envdecode.Decoder.
func (l *URLList) Decode(value string) error {
	var urls []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			urls = append(urls, part)
		}
	}
	*l = urls
	return nil
}

// Config is the fully-resolved authentication configuration the middleware
// consumes. It is read once at startup and shared by reference across all
// concurrent validations; nothing mutates it afterwards.
type Config struct {
	// Enabled gates the middleware entirely. Disabled by default so
	// development setups work without an identity provider.
	Enabled bool `env:"AUTH_ENABLED,default=false"`

	// JWKSURLs is the ordered list of JWKS endpoints searched during key
	// resolution.
	JWKSURLs URLList `env:"AUTH_JWKS_URLS"`

	// Audience, when set, must match the aud claim of accepted tokens.
	Audience string `env:"AUTH_AUDIENCE"`

	// Issuer, when set, must exactly match the iss claim.
	Issuer string `env:"AUTH_ISSUER"`

	// CacheTTLSeconds bounds how long fetched key sets stay fresh.
	CacheTTLSeconds int `env:"AUTH_JWKS_CACHE_SECONDS,default=3600"`
}

// CacheTTL returns the configured TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ConfigFromEnv loads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var c Config
	if err := envdecode.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("could not decode auth config from environment: %w", err)
	}
	return c, nil
}

// NewFromConfig wires a complete middleware from a resolved Config: one
// jwks.Source per configured URL behind a shared cache, a validator with
// the configured audience and issuer expectations, and the middleware shell
// around them. Further options are applied on top and may override the
// derived ones.
func NewFromConfig(cfg Config, opts ...Option) (*Middleware, error) {
	resolver := jwks.NewResolver(jwks.NewSources(cfg.JWKSURLs, cfg.CacheTTL()))

	v, err := validator.New(
		validator.WithKeyResolver(resolver),
		validator.WithAudience(cfg.Audience),
		validator.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build validator: %w", err)
	}

	baseOpts := []Option{
		WithValidator(v),
		WithEnabled(cfg.Enabled),
	}
	return New(append(baseOpts, opts...)...)
}
