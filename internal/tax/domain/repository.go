package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// GetActiveConfig returns nil, nil when the organization has no enabled
	// tax configuration.
	GetActiveConfig(ctx context.Context, orgID snowflake.ID) (*OrganizationTaxConfig, error)
	FindByOrg(ctx context.Context, orgID snowflake.ID) (*OrganizationTaxConfig, error)
	Create(ctx context.Context, cfg *OrganizationTaxConfig) error
	Update(ctx context.Context, cfg *OrganizationTaxConfig) error
}
