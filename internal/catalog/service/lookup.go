package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/cache"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type lookupParams struct {
	fx.In

	Log  *zap.Logger
	Cfg  config.Config
	Repo catalogdomain.Repository
}

type lookup struct {
	log   *zap.Logger
	repo  catalogdomain.Repository
	cache cache.Cache[string, *catalogdomain.ItemSalesData]
	ttl   time.Duration
}

func NewLookup(p lookupParams) catalogdomain.Lookup {
	return newLookup(p.Log, p.Repo, cache.NewTTLCache[string, *catalogdomain.ItemSalesData](), p.Cfg.CatalogCacheTTL)
}

func newLookup(log *zap.Logger, repo catalogdomain.Repository, c cache.Cache[string, *catalogdomain.ItemSalesData], ttl time.Duration) *lookup {
	return &lookup{
		log:   log.Named("catalog.lookup"),
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

func (l *lookup) GetItemSalesData(ctx context.Context, itemID string) (*catalogdomain.ItemSalesData, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, catalogdomain.ErrInvalidOrganization
	}

	id, err := snowflake.ParseString(strings.TrimSpace(itemID))
	if err != nil || id == 0 {
		return nil, catalogdomain.ErrInvalidItemID
	}

	key := cache.Key(orgID.String(), id.String())
	if data, ok := l.cache.Get(key); ok {
		copied := *data
		return &copied, nil
	}

	item, err := l.repo.FindActive(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, catalogdomain.ErrItemNotFound
	}

	data := item.SalesData()
	l.cache.Set(key, data, l.ttl)
	l.log.Debug("catalog item loaded", zap.String("item_id", data.ItemID))

	copied := *data
	return &copied, nil
}
