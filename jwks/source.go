package jwks

import "time"

// DefaultTTL is the cache time-to-live applied to a Source that does not
// specify its own.
const DefaultTTL = time.Hour

// Source is one configured JWKS origin. A deployment holds an ordered list
// of Sources; order determines search order during resolution, not priority.
// Sources are immutable once built.
type Source struct {
	// URL is the JWKS endpoint the document is fetched from.
	URL string

	// TTL bounds how long a fetched key set is considered fresh.
	TTL time.Duration
}

// NewSource builds a Source for the given URL. A non-positive ttl falls back
// to DefaultTTL.
func NewSource(url string, ttl time.Duration) Source {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Source{URL: url, TTL: ttl}
}

// NewSources builds one Source per URL, all sharing the same ttl.
func NewSources(urls []string, ttl time.Duration) []Source {
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, NewSource(u, ttl))
	}
	return sources
}
