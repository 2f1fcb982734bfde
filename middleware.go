package jwksmiddleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tokengate/go-jwks-middleware/validator"
)

// TokenValidator validates a raw token string and returns the authenticated
// identity. *validator.Validator implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*validator.AuthenticatedIdentity, error)
}

// ExclusionHandler reports whether a request should bypass token validation.
type ExclusionHandler func(r *http.Request) bool

// Middleware authenticates inbound requests. It holds no mutable state of
// its own and is safe to share across any number of concurrent requests.
type Middleware struct {
	validator           TokenValidator
	enabled             bool
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	validateOnOptions   bool
	exclusionHandler    ExclusionHandler
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// New constructs a Middleware from options. WithValidator is required.
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		enabled:           true,
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.validator == nil {
		return nil, ErrValidatorNil
	}

	m.applyDefaults()
	return m, nil
}

func (m *Middleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
	if m.logger == nil {
		m.logger = &DefaultLogger{}
	}
	if m.metrics == nil {
		m.metrics = &NoopMetrics{}
	}
	if m.tracer == nil {
		m.tracer = &NoopTracer{}
	}
}

// CheckJWT wraps next with token validation. On success the authenticated
// identity is stored in the request context; on failure the error handler
// responds and next never runs.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if m.exclusionHandler != nil && m.exclusionHandler(r) {
			m.logger.Debugf("skipping token validation for excluded path %s", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		span := m.tracer.StartSpan("jwksmiddleware.check_jwt")
		defer span.Finish()

		token, err := m.tokenExtractor(r)
		if err != nil {
			// An extractor error means a token was presented but
			// malformed at the transport level, not that it was missing.
			authErr := validator.NewAuthError(validator.CategoryMalformedToken, "error extracting token", err)
			m.observeFailure(span, r, validator.CategoryMalformedToken, authErr)
			m.errorHandler(w, r, authErr)
			return
		}

		if token == "" && m.credentialsOptional {
			m.logger.Debugf("no credentials presented, continuing (credentials optional)")
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		identity, err := m.validator.ValidateToken(r.Context(), token)
		m.metrics.ObserveHistogram("jwt_validation_duration_seconds", time.Since(start).Seconds(), nil)

		if err != nil {
			m.observeFailure(span, r, validator.CategoryOf(err), err)
			m.errorHandler(w, r, err)
			return
		}

		m.metrics.IncCounter("jwt_validations_total", map[string]string{"result": "success"})
		span.SetTag("auth.subject", identity.Subject)

		next.ServeHTTP(w, r.Clone(SetIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) observeFailure(span Span, r *http.Request, category validator.Category, err error) {
	if category == "" {
		category = validator.CategoryMalformedToken
	}
	m.logger.Warnf("token rejected (%s) for %s %s: %v", category, r.Method, r.URL.Path, err)
	m.metrics.IncCounter("jwt_validations_total", map[string]string{"result": string(category)})
	span.SetTag("auth.failure_category", string(category))
}
