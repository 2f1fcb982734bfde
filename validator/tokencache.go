package validator

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultDecisionTTL caps how long a positive validation result may be
// reused, independent of the token's own expiry.
const defaultDecisionTTL = time.Minute

type cachedDecision struct {
	identity  *AuthenticatedIdentity
	expiresAt time.Time
}

// decisionCache remembers recent positive validation results keyed by the
// raw token string, so hot tokens skip repeated signature checks. Entries
// are bounded by an expirable LRU and are never served at or past the
// token's own exp, whichever comes first. Rejections are never cached.
type decisionCache struct {
	lru *expirable.LRU[string, cachedDecision]
}

func newDecisionCache(size int, ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		ttl = defaultDecisionTTL
	}
	return &decisionCache{
		lru: expirable.NewLRU[string, cachedDecision](size, nil, ttl),
	}
}

func (c *decisionCache) get(token string, now time.Time) (*AuthenticatedIdentity, bool) {
	decision, ok := c.lru.Get(token)
	if !ok {
		return nil, false
	}
	if !now.Before(decision.expiresAt) {
		c.lru.Remove(token)
		return nil, false
	}
	return decision.identity, true
}

func (c *decisionCache) put(token string, identity *AuthenticatedIdentity, expiry time.Time, now time.Time) {
	if !now.Before(expiry) {
		return
	}
	c.lru.Add(token, cachedDecision{identity: identity, expiresAt: expiry})
}
