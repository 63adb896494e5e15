package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/pricing"
)

// Field names an editable numeric cell.
type Field string

const (
	FieldQuantity           Field = "quantity"
	FieldRate               Field = "rate"
	FieldDiscountPercentage Field = "discount_percentage"
	FieldTaxPercentage      Field = "tax_percentage"
	// FieldAdjustmentAmount is the header adjustment; it is buffered under an
	// empty row ID.
	FieldAdjustmentAmount Field = "adjustment_amount"
)

func (f Field) Valid() bool {
	switch f {
	case FieldQuantity, FieldRate, FieldDiscountPercentage, FieldTaxPercentage, FieldAdjustmentAmount:
		return true
	default:
		return false
	}
}

// LineItem is one row of an invoice being edited. Amounts are in the
// transaction currency; the Base fields mirror them in the home currency.
type LineItem struct {
	ID     string `json:"id"`
	SeqNo  int    `json:"seq_no"`
	ItemID string `json:"item_id,omitempty"`

	ItemName        string `json:"item_name,omitempty"`
	Description     string `json:"description,omitempty"`
	UnitID          string `json:"unit_id,omitempty"`
	UnitName        string `json:"unit_name,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	TaxCategoryName string `json:"tax_category_name,omitempty"`
	AccountID       string `json:"account_id,omitempty"`

	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	// RateBase is the home-currency unit price. Nil means it was never
	// captured for this line.
	RateBase           *decimal.Decimal `json:"rate_base"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal  `json:"tax_percentage"`

	Amount         decimal.Decimal `json:"amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`

	DiscountAmountBase decimal.Decimal `json:"discount_amount_base"`
	TaxableAmountBase  decimal.Decimal `json:"taxable_amount_base"`
	TaxAmountBase      decimal.Decimal `json:"tax_amount_base"`
	NetAmountBase      decimal.Decimal `json:"net_amount_base"`
}

// HasItem reports whether a catalog item has been chosen for the row.
func (l LineItem) HasItem() bool {
	return l.ItemID != ""
}

// HasRateBase reports whether a usable home-currency price is stored.
func (l LineItem) HasRateBase() bool {
	return l.RateBase != nil && l.RateBase.IsPositive()
}

// Recalculate refreshes every derived amount from the committed inputs and
// mirrors them into the home currency using multiplier.
func (l *LineItem) Recalculate(multiplier decimal.Decimal) {
	amounts := pricing.Calculate(pricing.Input{
		Quantity:           l.Quantity,
		Rate:               l.Rate,
		DiscountPercentage: l.DiscountPercentage,
		TaxPercentage:      l.TaxPercentage,
	})
	l.Amount = amounts.Amount
	l.DiscountAmount = amounts.DiscountAmount
	l.TaxableAmount = amounts.TaxableAmount
	l.TaxAmount = amounts.TaxAmount
	l.NetAmount = amounts.NetAmount

	base := pricing.Mirror(amounts, multiplier)
	l.DiscountAmountBase = base.DiscountAmount
	l.TaxableAmountBase = base.TaxableAmount
	l.TaxAmountBase = base.TaxAmount
	l.NetAmountBase = base.NetAmount
}

// ClearAmounts zeroes the derived figures, leaving inputs untouched.
func (l *LineItem) ClearAmounts() {
	l.Amount = decimal.Zero
	l.DiscountAmount = decimal.Zero
	l.TaxableAmount = decimal.Zero
	l.TaxAmount = decimal.Zero
	l.NetAmount = decimal.Zero
	l.DiscountAmountBase = decimal.Zero
	l.TaxableAmountBase = decimal.Zero
	l.TaxAmountBase = decimal.Zero
	l.NetAmountBase = decimal.Zero
}

// Clone returns a deep copy, including the RateBase pointer.
func (l LineItem) Clone() LineItem {
	if l.RateBase != nil {
		v := *l.RateBase
		l.RateBase = &v
	}
	return l
}

// CloneLines deep copies a line collection.
func CloneLines(lines []LineItem) []LineItem {
	out := make([]LineItem, len(lines))
	for i, line := range lines {
		out[i] = line.Clone()
	}
	return out
}
