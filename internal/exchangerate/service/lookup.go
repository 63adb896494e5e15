package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/cache"
	"github.com/smallbiznis/salesdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const inversePrecision = 6

type lookupParams struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Repo  exchangeratedomain.Repository
	Cache exchangeratedomain.RateCache
}

type lookup struct {
	log   *zap.Logger
	repo  exchangeratedomain.Repository
	cache exchangeratedomain.RateCache
	ttl   time.Duration
}

func NewLookup(p lookupParams) exchangeratedomain.Lookup {
	return &lookup{
		log:   p.Log.Named("exchangerate.lookup"),
		repo:  p.Repo,
		cache: p.Cache,
		ttl:   p.Cfg.ExchangeRateCacheTTL,
	}
}

// NewRateCache picks redis when an address is configured.
func NewRateCache(cfg config.Config, log *zap.Logger) exchangeratedomain.RateCache {
	if cfg.RedisAddr == "" {
		log.Info("exchange rate cache running in memory")
		return NewMemoryRateCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return NewRedisRateCache(client)
}

// GetRate resolves the rate for a pair. A pair with no direct quote falls back
// to the inverse of the reverse quote.
func (l *lookup) GetRate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return decimal.Zero, exchangeratedomain.ErrInvalidOrganization
	}

	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if len(from) != 3 || len(to) != 3 {
		return decimal.Zero, exchangeratedomain.ErrInvalidCurrency
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	key := cache.Key(orgID.String(), from, to, day.Format("2006-01-02"))

	if rate, hit, err := l.cache.Get(ctx, key); err != nil {
		l.log.Warn("exchange rate cache read failed", zap.Error(err))
	} else if hit {
		return rate, nil
	}

	rate, err := l.resolve(ctx, orgID, from, to, day)
	if err != nil {
		return decimal.Zero, err
	}

	if err := l.cache.Set(ctx, key, rate, l.ttl); err != nil {
		l.log.Warn("exchange rate cache write failed", zap.Error(err))
	}
	return rate, nil
}

func (l *lookup) resolve(ctx context.Context, orgID snowflake.ID, from, to string, day time.Time) (decimal.Decimal, error) {
	direct, err := l.repo.FindLatest(ctx, orgID, from, to, day)
	if err != nil {
		return decimal.Zero, err
	}
	if direct != nil && direct.Rate.IsPositive() {
		return direct.Rate, nil
	}

	reverse, err := l.repo.FindLatest(ctx, orgID, to, from, day)
	if err != nil {
		return decimal.Zero, err
	}
	if reverse != nil && reverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(reverse.Rate, inversePrecision), nil
	}
	return decimal.Zero, exchangeratedomain.ErrRateNotFound
}
