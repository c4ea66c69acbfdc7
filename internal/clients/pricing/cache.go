package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/wayfarer-planner/server/internal/agent/model"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// CachedLookup memoises quotes per route and date. Errors are not cached.
type CachedLookup struct {
	next  Lookup
	cache *cache.Cache
}

// NewCachedLookup wraps next with a TTL cache.
func NewCachedLookup(next Lookup, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedLookup{next: next, cache: cache.New(ttl, 2*ttl)}
}

func cacheKey(origin, destination, date string) string {
	return strings.ToUpper(origin) + "|" + strings.ToUpper(destination) + "|" + date
}

// Lookup implements Lookup.
func (c *CachedLookup) Lookup(ctx context.Context, origin, destination, date string) (model.Cost, error) {
	key := cacheKey(origin, destination, date)
	if v, ok := c.cache.Get(key); ok {
		logx.Debug().Str("key", key).Msg("pricing cache hit")
		return v.(model.Cost), nil
	}

	cost, err := c.next.Lookup(ctx, origin, destination, date)
	if err != nil {
		return model.Cost{}, err
	}
	c.cache.Set(key, cost, cache.DefaultExpiration)
	return cost, nil
}

var _ Lookup = (*CachedLookup)(nil)
