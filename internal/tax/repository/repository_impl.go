package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetActiveConfig(ctx context.Context, orgID snowflake.ID) (*taxdomain.OrganizationTaxConfig, error) {
	var cfg taxdomain.OrganizationTaxConfig
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_enabled = ?", orgID, true).
		Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) FindByOrg(ctx context.Context, orgID snowflake.ID) (*taxdomain.OrganizationTaxConfig, error) {
	var cfg taxdomain.OrganizationTaxConfig
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) Create(ctx context.Context, cfg *taxdomain.OrganizationTaxConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *repository) Update(ctx context.Context, cfg *taxdomain.OrganizationTaxConfig) error {
	return r.db.WithContext(ctx).
		Model(&taxdomain.OrganizationTaxConfig{}).
		Where("id = ? AND org_id = ?", cfg.ID, cfg.OrgID).
		Updates(map[string]any{
			"tax_type_code": cfg.TaxTypeCode,
			"tax_type_name": cfg.TaxTypeName,
			"state_id":      cfg.StateID,
			"is_enabled":    cfg.IsEnabled,
			"updated_at":    cfg.UpdatedAt,
		}).Error
}
