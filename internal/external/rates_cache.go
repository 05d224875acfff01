package external

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

// RatesSource is anything that can produce a rate snapshot.
type RatesSource interface {
	Latest(ctx context.Context) (pricing.Rates, error)
}

// CachedRates keeps the last snapshot in Redis for ttl. Redis failures fall
// through to the wrapped source.
type CachedRates struct {
	next RatesSource
	rdb  *redis.Client
	ttl  time.Duration
	key  string
}

func NewCachedRates(next RatesSource, rdb *redis.Client, ttl time.Duration) *CachedRates {
	return &CachedRates{next: next, rdb: rdb, ttl: ttl, key: "rates:eur:latest"}
}

func (c *CachedRates) Latest(ctx context.Context) (pricing.Rates, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return c.next.Latest(ctx)
	}

	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var r pricing.Rates
		if json.Unmarshal(raw, &r) == nil && len(r) > 0 {
			return r, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.WithContext(ctx).Warn("rates cache read failed", "error", err)
	}

	rates, err := c.next.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rates); err == nil {
		if err := c.rdb.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
			logger.WithContext(ctx).Warn("rates cache write failed", "error", err)
		}
	}
	return rates, nil
}
