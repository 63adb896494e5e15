package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	"gorm.io/gorm"
)

type groupSeed struct {
	Name     string
	Accounts []accountSeed
	Children []groupSeed
}

type accountSeed struct {
	Code string
	Type string
	Name string
}

var defaultChart = []groupSeed{
	{
		Name: "Income",
		Accounts: []accountSeed{
			{"4000", "income", "Sales"},
			{"4100", "income", "Service Income"},
		},
		Children: []groupSeed{
			{
				Name: "Indirect Income",
				Accounts: []accountSeed{
					{"4900", "income", "Round Off"},
					{"4910", "income", "Freight Recovered"},
				},
			},
		},
	},
	{
		Name: "Expenses",
		Children: []groupSeed{
			{
				Name: "Indirect Expenses",
				Accounts: []accountSeed{
					{"5100", "expense", "Discount Allowed"},
					{"5200", "expense", "Bank Charges"},
				},
			},
		},
	},
}

// EnsureLedgerAccounts seeds the default chart of accounts for orgID. Groups
// and accounts that already exist by name or code are left alone. It returns
// how many accounts were created.
func EnsureLedgerAccounts(ctx context.Context, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}
	if orgID == 0 {
		return 0, accountdomain.ErrInvalidOrganization
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, g := range defaultChart {
			n, err := ensureGroupTx(ctx, tx, node, orgID, nil, i, g)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	return created, err
}

func ensureGroupTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, parentID *snowflake.ID, sortOrder int, seed groupSeed) (int, error) {
	var group accountdomain.AccountGroup
	query := tx.WithContext(ctx).Where("org_id = ? AND name = ?", orgID, seed.Name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.First(&group).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		group = accountdomain.AccountGroup{
			ID:        node.Generate(),
			OrgID:     orgID,
			ParentID:  parentID,
			Name:      seed.Name,
			SortOrder: sortOrder,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&group).Error; err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	created := 0
	for _, a := range seed.Accounts {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&accountdomain.LedgerAccount{}).
			Where("org_id = ? AND code = ?", orgID, a.Code).
			Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			continue
		}
		account := accountdomain.LedgerAccount{
			ID:          node.Generate(),
			OrgID:       orgID,
			GroupID:     group.ID,
			Code:        a.Code,
			Name:        a.Name,
			AccountType: a.Type,
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
			return 0, err
		}
		created++
	}

	for i, child := range seed.Children {
		n, err := ensureGroupTx(ctx, tx, node, orgID, &group.ID, i, child)
		if err != nil {
			return 0, err
		}
		created += n
	}
	return created, nil
}
