package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Lookup resolves sales data for a selected item. The organization is taken
// from ctx.
type Lookup interface {
	GetItemSalesData(ctx context.Context, itemID string) (*ItemSalesData, error)
}

type Repository interface {
	// FindActive returns nil, nil when no active item matches.
	FindActive(ctx context.Context, orgID, itemID snowflake.ID) (*Item, error)
}
