package jwks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResolutionError reports a key resolution that exhausted every configured
// source. Unreachable is set when all sources failed to serve a document
// during a required fetch, which the validator surfaces as an upstream
// failure rather than an unknown key.
type ResolutionError struct {
	KeyID       string
	Unreachable bool
	Errs        []error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("no configured source yielded a key for kid %q", e.KeyID)
	if e.KeyID == "" {
		msg = "no configured source yielded a usable key"
	}
	if len(e.Errs) == 0 {
		return msg
	}
	details := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		details = append(details, err.Error())
	}
	return msg + ": " + strings.Join(details, "; ")
}

// Unwrap exposes the per-source failures for errors.Is / errors.As matching.
func (e *ResolutionError) Unwrap() []error {
	return e.Errs
}

// Resolver locates the verification key for a token's declared key id,
// searching all configured sources in order. The cache is consulted first; a
// stale or missing entry triggers a fetch, and a fresh entry that lacks the
// requested kid triggers one forced refetch to pick up rotated keys.
//
// A Resolver is safe for concurrent use. Simultaneous resolutions for the
// same expired source may each trigger a fetch; the cache resolves the
// resulting writes last-writer-wins.
type Resolver struct {
	sources      []Source
	cache        *Cache
	fetcher      Fetcher
	logger       Logger
	requireKeyID bool
	clock        func() time.Time
}

// NewResolver builds a Resolver over the given ordered sources.
func NewResolver(sources []Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		sources: sources,
		cache:   NewCache(),
		logger:  nopLogger{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetcher == nil {
		r.fetcher = NewHTTPFetcher(WithFetcherLogger(r.logger))
	}
	return r
}

// ResolveKeys returns the candidate verification keys for kid. A non-empty
// kid resolves to the first matching key; an empty kid resolves to every key
// currently available across the configured sources, since some providers
// publish single-key sets without ids. Fetch failures for one source never
// abort the search; they are retained and reported only if no source yields
// a match.
func (r *Resolver) ResolveKeys(ctx context.Context, kid string) ([]Key, error) {
	now := r.clock()

	if kid == "" && r.requireKeyID {
		return nil, &ResolutionError{
			Errs: []error{errors.New("token header carries no kid and key ids are required")},
		}
	}

	var (
		candidates  []Key
		failures    []error
		unreachable int
	)

	for _, src := range r.sources {
		keys, outcome := r.cache.Lookup(src, kid, now)
		switch outcome {
		case OutcomeHit:
			if kid != "" {
				return keys, nil
			}
			candidates = append(candidates, keys...)
			continue
		case OutcomeKeyAbsent:
			// Upstream may have rotated its signing key after the last
			// fill but before TTL expiry. Refetch once before giving up
			// on this source.
			r.logger.Debugf("kid %q absent from fresh cache for %s, forcing refetch", kid, src.URL)
		case OutcomeMiss:
		}

		entry, err := r.refresh(ctx, src)
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && fetchErr.Kind == FetchUnreachable {
				unreachable++
			}
			r.logger.Warnf("skipping source %s: %v", src.URL, err)
			failures = append(failures, err)
			continue
		}

		keys, outcome = searchEntry(entry, kid)
		if outcome == OutcomeHit {
			if kid != "" {
				return keys, nil
			}
			candidates = append(candidates, keys...)
		}
	}

	if kid == "" && len(candidates) > 0 {
		return candidates, nil
	}

	return nil, &ResolutionError{
		KeyID:       kid,
		Unreachable: len(r.sources) > 0 && unreachable == len(r.sources),
		Errs:        failures,
	}
}

type refreshResult struct {
	entry *Entry
	err   error
}

// refresh fetches the source's document and installs the new entry. The
// fetch runs detached from the caller's cancellation: if the surrounding
// request gives up, the fetch is left to complete and populate the cache for
// later requests, and the caller gets an unreachable-classified error. A
// failed fetch leaves any previous entry in place untouched.
func (r *Resolver) refresh(ctx context.Context, src Source) (*Entry, error) {
	ch := make(chan refreshResult, 1)
	fetchCtx := context.WithoutCancel(ctx)

	go func() {
		keys, err := r.fetcher.Fetch(fetchCtx, src)
		if err != nil {
			ch <- refreshResult{err: err}
			return
		}
		entry := NewEntry(keys, r.clock(), src.TTL)
		r.cache.Put(src, entry)
		ch <- refreshResult{entry: entry}
	}()

	select {
	case res := <-ch:
		return res.entry, res.err
	case <-ctx.Done():
		return nil, &FetchError{Kind: FetchUnreachable, URL: src.URL, Err: ctx.Err()}
	}
}
