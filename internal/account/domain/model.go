package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountGroup is a node of the chart-of-accounts schedule tree.
type AccountGroup struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	OrgID     snowflake.ID  `gorm:"not null;index"`
	ParentID  *snowflake.ID `gorm:"index"`
	Name      string        `gorm:"type:text;not null"`
	SortOrder int           `gorm:"not null;default:0"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AccountGroup) TableName() string { return "account_groups" }

// LedgerAccount is a postable account placed under a group.
type LedgerAccount struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	GroupID     snowflake.ID `gorm:"not null;index"`
	Code        string       `gorm:"type:text;not null"`
	Name        string       `gorm:"type:text;not null"`
	AccountType string       `gorm:"type:text;not null;default:''"`
	IsActive    bool         `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// Option is one entry of the flattened account picker. Label carries two
// spaces of indent per depth.
type Option struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

type ListFilter struct {
	AccountTypes []string
	// MaxDepth limits how deep the tree is walked; zero means unlimited.
	MaxDepth int
}
