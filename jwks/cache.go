package jwks

import (
	"sync"
	"time"
)

// Entry is the cached key set for one Source. Key ids are unique within an
// entry; keys published without a kid are kept as unindexed fallbacks. An
// Entry is immutable once built and is replaced wholesale on refresh.
type Entry struct {
	byID      map[string]Key
	unindexed []Key

	// FetchedAt records when the document was retrieved.
	FetchedAt time.Time

	// ExpiresAt is the freshness deadline derived from the source TTL.
	ExpiresAt time.Time
}

// NewEntry builds an Entry from fetched keys. When a document carries two
// keys under the same kid the first one wins, keeping the id mapping unique.
func NewEntry(keys []Key, fetchedAt time.Time, ttl time.Duration) *Entry {
	e := &Entry{
		byID:      make(map[string]Key, len(keys)),
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
	}
	for _, k := range keys {
		if k.KeyID == "" {
			e.unindexed = append(e.unindexed, k)
			continue
		}
		if _, ok := e.byID[k.KeyID]; ok {
			continue
		}
		e.byID[k.KeyID] = k
	}
	return e
}

// Key returns the key published under kid.
func (e *Entry) Key(kid string) (Key, bool) {
	k, ok := e.byID[kid]
	return k, ok
}

// Keys returns every key in the entry, indexed and unindexed.
func (e *Entry) Keys() []Key {
	keys := make([]Key, 0, len(e.byID)+len(e.unindexed))
	for _, k := range e.byID {
		keys = append(keys, k)
	}
	keys = append(keys, e.unindexed...)
	return keys
}

// Len returns the number of keys held by the entry.
func (e *Entry) Len() int {
	return len(e.byID) + len(e.unindexed)
}

// Fresh reports whether the entry is still within its TTL at the given time.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Outcome classifies a cache lookup. The resolver needs more than a boolean:
// a fresh entry that lacks the requested kid triggers a forced refetch
// (rotation handling), which a plain hit/miss distinction cannot express.
type Outcome int

const (
	// OutcomeMiss means no entry exists for the source, or the entry is
	// past its freshness deadline.
	OutcomeMiss Outcome = iota

	// OutcomeHit means a fresh entry holds the requested key, or candidate
	// keys when no kid was requested.
	OutcomeHit

	// OutcomeKeyAbsent means a fresh entry exists but the requested kid is
	// not in it. The signing key may have rotated upstream since the last
	// fill.
	OutcomeKeyAbsent
)

// Cache stores the most recently fetched Entry per Source. It supports any
// number of concurrent lookups and serializes replacement per source;
// concurrent Puts for the same source resolve last-writer-wins. Entries are
// only ever replaced as a whole, so readers never observe partial state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Get returns the current entry for the source regardless of freshness.
// Absence only occurs before the first successful fetch.
func (c *Cache) Get(source Source) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[source.URL]
	return e, ok
}

// Put atomically replaces the entry for the source.
func (c *Cache) Put(source Source, e *Entry) {
	c.mu.Lock()
	c.entries[source.URL] = e
	c.mu.Unlock()
}

// Lookup searches the source's entry for kid and classifies the result.
// With an empty kid every key in a fresh entry is returned as a candidate.
func (c *Cache) Lookup(source Source, kid string, now time.Time) ([]Key, Outcome) {
	entry, ok := c.Get(source)
	if !ok || !entry.Fresh(now) {
		return nil, OutcomeMiss
	}
	return searchEntry(entry, kid)
}

// searchEntry applies the kid search rules to a fresh entry.
func searchEntry(entry *Entry, kid string) ([]Key, Outcome) {
	if kid == "" {
		if entry.Len() == 0 {
			return nil, OutcomeKeyAbsent
		}
		return entry.Keys(), OutcomeHit
	}
	if k, ok := entry.Key(kid); ok {
		return []Key{k}, OutcomeHit
	}
	return nil, OutcomeKeyAbsent
}
