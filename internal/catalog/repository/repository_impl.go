package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) catalogdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindActive(ctx context.Context, orgID, itemID snowflake.ID) (*catalogdomain.Item, error) {
	var item catalogdomain.Item
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ? AND is_active = ?", orgID, itemID, true).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
