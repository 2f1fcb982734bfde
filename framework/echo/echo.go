// Package echohandler adapts the JWKS middleware to the Echo framework.
package echohandler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jwksmiddleware "github.com/tokengate/go-jwks-middleware"
)

// DefaultIdentityKey is the echo.Context key the authenticated identity is
// stored under.
const DefaultIdentityKey = "identity"

type config struct {
	identityKey    string
	middlewareOpts []jwksmiddleware.Option
}

// Option configures the Echo adapter.
type Option func(*config)

// WithIdentityKey overrides the echo.Context key used for the identity.
func WithIdentityKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.identityKey = key
		}
	}
}

// WithMiddlewareOptions forwards options to the underlying middleware.
func WithMiddlewareOptions(opts ...jwksmiddleware.Option) Option {
	return func(c *config) {
		c.middlewareOpts = append(c.middlewareOpts, opts...)
	}
}

// Middleware builds an echo.MiddlewareFunc around the given validator. On
// success the identity is available both through the request context and
// via c.Get(DefaultIdentityKey).
func Middleware(v jwksmiddleware.TokenValidator, opts ...Option) (echo.MiddlewareFunc, error) {
	cfg := &config{identityKey: DefaultIdentityKey}
	for _, opt := range opts {
		opt(cfg)
	}

	mwOpts := append([]jwksmiddleware.Option{jwksmiddleware.WithValidator(v)}, cfg.middlewareOpts...)
	mw, err := jwksmiddleware.New(mwOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				if identity, ok := jwksmiddleware.IdentityFromContext(r.Context()); ok {
					c.Set(cfg.identityKey, identity)
				}
				nextErr = next(c)
			})

			mw.CheckJWT(handler).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}, nil
}
