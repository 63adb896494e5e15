package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ExchangeRate quotes how many units of ToCurrency one unit of FromCurrency
// buys, effective from EffectiveDate.
type ExchangeRate struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	OrgID         snowflake.ID    `gorm:"column:org_id;not null;index:ix_exchange_rates_pair"`
	FromCurrency  string          `gorm:"type:char(3);not null;index:ix_exchange_rates_pair"`
	ToCurrency    string          `gorm:"type:char(3);not null;index:ix_exchange_rates_pair"`
	Rate          decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	EffectiveDate time.Time       `gorm:"type:date;not null;index:ix_exchange_rates_pair"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ExchangeRate) TableName() string { return "exchange_rates" }
