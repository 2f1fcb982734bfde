package jwks

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the fetcher's HTTP client. The client's timeout
// bounds each retrieval.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithFetchTimeout sets the per-retrieval timeout on the fetcher's client.
func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.client.Timeout = timeout
		}
	}
}

// WithBreaker guards retrievals with a circuit breaker. Sources that fail
// repeatedly are short-circuited until the breaker half-opens; an open
// breaker reports as an unreachable source.
func WithBreaker(settings gobreaker.Settings) FetcherOption {
	return func(f *HTTPFetcher) {
		f.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// WithFetcherLogger sets the fetcher's logger.
func WithFetcherLogger(logger Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache replaces the resolver's cache. Resolvers sharing a cache share
// fetched key sets.
func WithCache(cache *Cache) ResolverOption {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithFetcher replaces the resolver's fetcher. Tests substitute a counting
// fake here to assert fetch behavior deterministically.
func WithFetcher(fetcher Fetcher) ResolverOption {
	return func(r *Resolver) {
		r.fetcher = fetcher
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRequireKeyID makes resolution fail for tokens whose header carries no
// kid instead of treating every available key as a candidate.
func WithRequireKeyID(require bool) ResolverOption {
	return func(r *Resolver) {
		r.requireKeyID = require
	}
}

// WithClock overrides the resolver's time source. Tests use this to step
// entries across their freshness deadline without sleeping.
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}
