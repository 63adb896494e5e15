package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
	"github.com/smallbiznis/salesdesk/internal/exchangerate/repository"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestLookup(t *testing.T) (exchangeratedomain.Lookup, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&exchangeratedomain.ExchangeRate{}))

	l := NewLookup(lookupParams{
		Log:   zap.NewNop(),
		Cfg:   config.Config{ExchangeRateCacheTTL: time.Minute},
		Repo:  repository.NewRepository(db),
		Cache: NewMemoryRateCache(),
	})
	return l, db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLookup_GetRate(t *testing.T) {
	l, db := newTestLookup(t)
	orgID := snowflake.ID(3)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	require.NoError(t, db.Create(&[]exchangeratedomain.ExchangeRate{
		{ID: 1, OrgID: orgID, FromCurrency: "USD", ToCurrency: "INR", Rate: decimal.RequireFromString("80"), EffectiveDate: day(2025, 1, 1)},
		{ID: 2, OrgID: orgID, FromCurrency: "USD", ToCurrency: "INR", Rate: decimal.RequireFromString("82.5"), EffectiveDate: day(2025, 3, 1)},
		{ID: 3, OrgID: orgID, FromCurrency: "INR", ToCurrency: "JPY", Rate: decimal.RequireFromString("1.6"), EffectiveDate: day(2025, 1, 1)},
	}).Error)

	rate, err := l.GetRate(ctx, "usd", "INR", day(2025, 2, 10))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("80")), rate.String())

	rate, err = l.GetRate(ctx, "USD", "INR", day(2025, 3, 15))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("82.5")), rate.String())

	rate, err = l.GetRate(ctx, "JPY", "INR", day(2025, 3, 15))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.625")), rate.String())

	rate, err = l.GetRate(ctx, "INR", "INR", day(2025, 3, 15))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, err = l.GetRate(ctx, "EUR", "INR", day(2025, 3, 15))
	assert.ErrorIs(t, err, exchangeratedomain.ErrRateNotFound)

	_, err = l.GetRate(ctx, "US", "INR", day(2025, 3, 15))
	assert.ErrorIs(t, err, exchangeratedomain.ErrInvalidCurrency)

	_, err = l.GetRate(context.Background(), "USD", "INR", day(2025, 3, 15))
	assert.ErrorIs(t, err, exchangeratedomain.ErrInvalidOrganization)
}

func TestLookup_UsesCache(t *testing.T) {
	l, db := newTestLookup(t)
	orgID := snowflake.ID(3)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	require.NoError(t, db.Create(&exchangeratedomain.ExchangeRate{
		ID: 1, OrgID: orgID, FromCurrency: "USD", ToCurrency: "INR", Rate: decimal.RequireFromString("80"), EffectiveDate: day(2025, 1, 1),
	}).Error)

	_, err := l.GetRate(ctx, "USD", "INR", day(2025, 2, 1))
	require.NoError(t, err)

	require.NoError(t, db.Exec("DELETE FROM exchange_rates").Error)

	rate, err := l.GetRate(ctx, "USD", "INR", day(2025, 2, 1))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("80")))
}
