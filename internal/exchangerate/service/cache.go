package service

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/cache"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
)

const keyExchangeRate = "fx:rate:"

type redisRateCache struct {
	client *redis.Client
}

// NewRedisRateCache stores rates as decimal strings under fx:rate:<key>.
func NewRedisRateCache(client *redis.Client) exchangeratedomain.RateCache {
	return &redisRateCache{client: client}
}

func (c *redisRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, keyExchangeRate+key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}

func (c *redisRateCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	return c.client.Set(ctx, keyExchangeRate+key, rate.String(), ttl).Err()
}

type memoryRateCache struct {
	items *cache.TTLCache[string, decimal.Decimal]
}

// NewMemoryRateCache keeps rates in process; used when no redis is configured.
func NewMemoryRateCache() exchangeratedomain.RateCache {
	return &memoryRateCache{items: cache.NewTTLCache[string, decimal.Decimal]()}
}

func (c *memoryRateCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	rate, ok := c.items.Get(key)
	return rate, ok, nil
}

func (c *memoryRateCache) Set(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	c.items.Set(key, rate, ttl)
	return nil
}
