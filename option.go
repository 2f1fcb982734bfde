package jwksmiddleware

import (
	"errors"
	"net/http"
)

// Option configures the Middleware.
type Option func(*Middleware) error

// Sentinel errors for configuration validation.
var (
	ErrValidatorNil      = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil   = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")
	ErrExclusionsEmpty   = errors.New("exclusion list cannot be empty")
	ErrLoggerNil         = errors.New("logger cannot be nil")
	ErrMetricsNil        = errors.New("metrics cannot be nil")
	ErrTracerNil         = errors.New("tracer cannot be nil")
)

// WithValidator sets the token validator. Required.
func WithValidator(v TokenValidator) Option {
	return func(m *Middleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		m.validator = v
		return nil
	}
}

// WithEnabled toggles the middleware. When disabled, every request passes
// straight through untouched; the deployment's enable flag maps here.
//
// Default: true.
func WithEnabled(enabled bool) Option {
	return func(m *Middleware) error {
		m.enabled = enabled
		return nil
	}
}

// WithCredentialsOptional lets requests without any token through without an
// identity in the context. Requests that present a token are still fully
// validated.
//
// Default: false (credentials required).
func WithCredentialsOptional(optional bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = optional
		return nil
	}
}

// WithValidateOnOptions controls whether OPTIONS requests are validated.
//
// Default: true.
func WithValidateOnOptions(validate bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = validate
		return nil
	}
}

// WithErrorHandler sets the handler invoked for validation failures.
//
// Default: DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function that pulls the raw token out of the
// request.
//
// Default: AuthHeaderTokenExtractor.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusions bypasses validation for requests whose full URL or path
// exactly matches one of the given strings.
func WithExclusions(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionsEmpty
		}
		m.exclusionHandler = func(r *http.Request) bool {
			fullURL := r.URL.String()
			for _, exclusion := range exclusions {
				if fullURL == exclusion || r.URL.Path == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithExclusionHandler sets a custom bypass predicate.
func WithExclusionHandler(h ExclusionHandler) Option {
	return func(m *Middleware) error {
		m.exclusionHandler = h
		return nil
	}
}

// WithLogger sets the middleware logger. See NewZapLogger, NewZerologLogger
// and NewLogrusLogger for adapters to common logging libraries.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
//
// Default: NoopMetrics.
func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer.
//
// Default: NoopTracer.
func WithTracer(tracer Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}
