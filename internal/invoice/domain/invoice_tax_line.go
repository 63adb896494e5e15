package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceTaxLine is one tax bucket of a submitted invoice.
type InvoiceTaxLine struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	OrgID      snowflake.ID    `gorm:"not null;index"`
	InvoiceID  snowflake.ID    `gorm:"not null;index"`
	SeqNo      int             `gorm:"not null"`
	TaxCode    string          `gorm:"type:text;not null"`
	TaxName    string          `gorm:"type:text;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	AmountBase decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceTaxLine) TableName() string { return "invoice_tax_lines" }

// InvoiceSequence holds the next invoice number of an organization.
type InvoiceSequence struct {
	OrgID      snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	NextNumber int64        `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
