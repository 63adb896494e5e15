// Package domain contains the invoice editor's line and header types and the
// persistence models written on submission.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted InvoiceStatus = "SUBMITTED"
)

// Invoice is the persisted snapshot of a submitted editor session.
type Invoice struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	OrgID           snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_org_number,priority:1"`
	InvoiceNumber   int64           `gorm:"not null;uniqueIndex:ux_invoices_org_number,priority:2"`
	DisplayNumber   string          `gorm:"type:text;not null"`
	SessionID       string          `gorm:"type:text;not null;uniqueIndex"`
	CustomerID      snowflake.ID    `gorm:"not null;index"`
	CustomerStateID string          `gorm:"type:text"`
	InvoiceDate     time.Time       `gorm:"not null"`
	Currency        string          `gorm:"type:text;not null"`
	HomeCurrency    string          `gorm:"type:text;not null"`
	IsForeign       bool            `gorm:"not null"`
	ExchangeRate    decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	TaxRegime       string          `gorm:"type:text;not null"`
	Status          InvoiceStatus   `gorm:"type:text;not null;default:'DRAFT'"`

	GrossTotal          decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TotalDiscount       decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TotalTax            decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	AdjustmentAmount    decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	AdjustmentName      string          `gorm:"type:text"`
	AdjustmentAccountID string          `gorm:"type:text"`
	NetTotal            decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	PendingAmount       decimal.Decimal `gorm:"type:numeric(18,3);not null"`

	GrossTotalBase       decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TotalDiscountBase    decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TotalTaxBase         decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	AdjustmentAmountBase decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	NetTotalBase         decimal.Decimal `gorm:"type:numeric(18,3);not null"`

	// Metadata carries the tax name and component labels the invoice was
	// computed under.
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items    []InvoiceItem    `gorm:"foreignKey:InvoiceID"`
	TaxLines []InvoiceTaxLine `gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a persisted invoice line.
type InvoiceItem struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	OrgID           snowflake.ID `gorm:"not null;index"`
	InvoiceID       snowflake.ID `gorm:"not null;index"`
	SeqNo           int          `gorm:"not null"`
	ItemID          string       `gorm:"type:text;not null"`
	ItemName        string       `gorm:"type:text"`
	Description     string       `gorm:"type:text"`
	UnitID          string       `gorm:"type:text"`
	UnitName        string       `gorm:"type:text"`
	TaxCategoryID   string       `gorm:"type:text"`
	TaxCategoryName string       `gorm:"type:text"`
	AccountID       string       `gorm:"type:text"`

	Quantity decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	Rate     decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	// RateBase keeps the unrounded home price.
	RateBase           decimal.NullDecimal `gorm:"type:numeric(24,9)"`
	DiscountPercentage decimal.Decimal     `gorm:"type:numeric(7,3);not null"`
	TaxPercentage      decimal.Decimal     `gorm:"type:numeric(7,3);not null"`

	Amount         decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TaxableAmount  decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	NetAmount      decimal.Decimal `gorm:"type:numeric(18,3);not null"`

	DiscountAmountBase decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TaxableAmountBase  decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	TaxAmountBase      decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	NetAmountBase      decimal.Decimal `gorm:"type:numeric(18,3);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// ToLineItem converts a stored line back into an editor line.
func (i InvoiceItem) ToLineItem() LineItem {
	line := LineItem{
		ID:                 i.ID.String(),
		SeqNo:              i.SeqNo,
		ItemID:             i.ItemID,
		ItemName:           i.ItemName,
		Description:        i.Description,
		UnitID:             i.UnitID,
		UnitName:           i.UnitName,
		CategoryID:         i.TaxCategoryID,
		TaxCategoryName:    i.TaxCategoryName,
		AccountID:          i.AccountID,
		Quantity:           i.Quantity,
		Rate:               i.Rate,
		DiscountPercentage: i.DiscountPercentage,
		TaxPercentage:      i.TaxPercentage,
	}
	if i.RateBase.Valid {
		base := i.RateBase.Decimal
		line.RateBase = &base
	}
	return line
}
