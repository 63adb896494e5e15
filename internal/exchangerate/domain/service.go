package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Lookup returns home-currency units per one unit of from, as of a date.
type Lookup interface {
	GetRate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
}

type Repository interface {
	// FindLatest returns the newest rate effective on or before asOf, or
	// nil, nil.
	FindLatest(ctx context.Context, orgID snowflake.ID, from, to string, asOf time.Time) (*ExchangeRate, error)
}

// RateCache stores resolved rates between lookups.
type RateCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error
}
