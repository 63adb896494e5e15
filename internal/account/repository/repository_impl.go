package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) accountdomain.Repository {
	return &repository{db: db}
}

func (r *repository) ListGroups(ctx context.Context, orgID snowflake.ID) ([]accountdomain.AccountGroup, error) {
	var groups []accountdomain.AccountGroup
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&groups).Error
	return groups, err
}

func (r *repository) ListAccounts(ctx context.Context, orgID snowflake.ID, accountTypes []string) ([]accountdomain.LedgerAccount, error) {
	var accounts []accountdomain.LedgerAccount
	stmt := r.db.WithContext(ctx).
		Where("org_id = ? AND is_active = ?", orgID, true)
	if len(accountTypes) > 0 {
		stmt = stmt.Where("account_type IN ?", accountTypes)
	}
	err := stmt.Order("code ASC").Find(&accounts).Error
	return accounts, err
}

func (r *repository) FindActive(ctx context.Context, orgID, id snowflake.ID) (*accountdomain.LedgerAccount, error) {
	var account accountdomain.LedgerAccount
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ? AND is_active = ?", orgID, id, true).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
