package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Item is a sellable catalog item.
type Item struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	Name             string          `gorm:"type:text;not null"`
	SalesDescription string          `gorm:"type:text"`
	SellingPrice     decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0"`
	TaxPercentage    decimal.Decimal `gorm:"type:numeric(7,3);not null;default:0"`
	UnitID           string          `gorm:"type:text"`
	UnitName         string          `gorm:"type:text"`
	TaxCategoryID    string          `gorm:"type:text"`
	TaxCategoryName  string          `gorm:"type:text"`
	SalesAccountID   string          `gorm:"type:text"`
	IsActive         bool            `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Item) TableName() string { return "catalog_items" }

// ItemSalesData is what the invoice editor needs from the catalog when an
// item is selected. Price is in the home currency.
type ItemSalesData struct {
	ItemID           string          `json:"item_id"`
	Name             string          `json:"name"`
	SalesDescription string          `json:"sales_description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	TaxPercentage    decimal.Decimal `json:"tax_percentage"`
	UnitID           string          `json:"unit_id,omitempty"`
	UnitName         string          `json:"unit_name,omitempty"`
	TaxCategoryID    string          `json:"tax_category_id,omitempty"`
	TaxCategoryName  string          `json:"tax_category_name,omitempty"`
	SalesAccountID   string          `json:"sales_account_id,omitempty"`
}

func (i *Item) SalesData() *ItemSalesData {
	return &ItemSalesData{
		ItemID:           i.ID.String(),
		Name:             i.Name,
		SalesDescription: i.SalesDescription,
		Price:            i.SellingPrice,
		TaxPercentage:    i.TaxPercentage,
		UnitID:           i.UnitID,
		UnitName:         i.UnitName,
		TaxCategoryID:    i.TaxCategoryID,
		TaxCategoryName:  i.TaxCategoryName,
		SalesAccountID:   i.SalesAccountID,
	}
}
