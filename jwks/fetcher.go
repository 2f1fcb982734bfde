package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sony/gobreaker"
)

const (
	// DefaultFetchTimeout bounds a single JWKS retrieval.
	DefaultFetchTimeout = 5 * time.Second

	// maxDocumentSize caps the response body read from a JWKS endpoint.
	// Real documents are a few KB; 1MB leaves ample headroom.
	maxDocumentSize = 1 * 1024 * 1024
)

// FetchErrorKind classifies a failed JWKS retrieval.
type FetchErrorKind int

const (
	// FetchUnreachable covers network failures, timeouts and non-200
	// responses from the endpoint.
	FetchUnreachable FetchErrorKind = iota

	// FetchMalformedDocument means the response body did not parse as a
	// JWKS document.
	FetchMalformedDocument

	// FetchUnsupportedKeyType means the document parsed but every key in
	// it uses a family the validator does not implement.
	FetchUnsupportedKeyType
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchUnreachable:
		return "unreachable"
	case FetchMalformedDocument:
		return "malformed_document"
	case FetchUnsupportedKeyType:
		return "unsupported_key_type"
	default:
		return "unknown"
	}
}

// FetchError reports a failed retrieval from one JWKS endpoint.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jwks fetch from %s failed (%s): %s", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("jwks fetch from %s failed (%s)", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves and parses one JWKS document. Implementations do not
// write to the cache; the Resolver owns cache updates.
type Fetcher interface {
	Fetch(ctx context.Context, source Source) ([]Key, error)
}

// HTTPFetcher retrieves JWKS documents with a bounded-timeout HTTP GET and
// parses them with jwx. An optional circuit breaker short-circuits sources
// that fail repeatedly; an open breaker reports as FetchUnreachable.
type HTTPFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

// NewHTTPFetcher builds an HTTPFetcher with the supplied options.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: DefaultFetchTimeout},
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, source Source) ([]Key, error) {
	if f.breaker == nil {
		return f.fetch(ctx, source)
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, source)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Kind: FetchUnreachable, URL: source.URL, Err: err}
		}
		return nil, err
	}
	return result.([]Key), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, source Source) ([]Key, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: FetchUnreachable, URL: source.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchUnreachable, URL: source.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Kind: FetchUnreachable,
			URL:  source.URL,
			Err:  fmt.Errorf("endpoint returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, &FetchError{Kind: FetchUnreachable, URL: source.URL, Err: err}
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformedDocument, URL: source.URL, Err: err}
	}

	keys := make([]Key, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if !supportedKeyType(key.KeyType()) {
			f.logger.Debugf("skipping key %q from %s: unsupported key type %s", key.KeyID(), source.URL, key.KeyType())
			continue
		}
		keys = append(keys, Key{
			KeyID:    key.KeyID(),
			Type:     key.KeyType(),
			Material: key,
		})
	}

	if set.Len() > 0 && len(keys) == 0 {
		return nil, &FetchError{
			Kind: FetchUnsupportedKeyType,
			URL:  source.URL,
			Err:  fmt.Errorf("document holds %d keys, none of a supported family", set.Len()),
		}
	}

	f.logger.Debugf("fetched %d keys from %s", len(keys), source.URL)
	return keys, nil
}
