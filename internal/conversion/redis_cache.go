package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// CachedSource decorates a RateSource with a Redis TTL cache. Cache
// failures fall through to the underlying source.
type CachedSource struct {
	source RateSource
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps a rate source with Redis caching
func NewCachedSource(logger *slog.Logger, client *redis.Client, ttl time.Duration, source RateSource) *CachedSource {
	return &CachedSource{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func rateCacheKey(from, to string) string {
	return fmt.Sprintf("rate:%s:%s", from, to)
}

// Rate returns the cached rate for the pair, fetching and caching it on a miss
func (c *CachedSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := rateCacheKey(from, to)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		rate, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			return rate, nil
		}
		c.logger.Warn("Discarding unparseable cached rate", "key", key, "value", cached)
	} else if err != redis.Nil {
		c.logger.Warn("Rate cache read failed", "key", key, "error", err)
	}

	rate, err := c.source.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.client.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("Rate cache write failed", "key", key, "error", err)
	}

	return rate, nil
}
