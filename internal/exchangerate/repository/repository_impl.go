package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) exchangeratedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindLatest(ctx context.Context, orgID snowflake.ID, from, to string, asOf time.Time) (*exchangeratedomain.ExchangeRate, error) {
	var rate exchangeratedomain.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND from_currency = ? AND to_currency = ? AND effective_date <= ?", orgID, from, to, asOf).
		Order("effective_date DESC").
		Take(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
