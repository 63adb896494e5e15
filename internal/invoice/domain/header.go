package domain

import "github.com/shopspring/decimal"

// TaxBucket is one tax line of the invoice summary.
type TaxBucket struct {
	Code       string          `json:"code"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	AmountBase decimal.Decimal `json:"amount_base"`
}

// Adjustment is a signed manual correction to the invoice total.
type Adjustment struct {
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name,omitempty"`
	AccountID string          `json:"account_id,omitempty"`
}

// Header aggregates every line of an invoice.
type Header struct {
	GrossTotal          decimal.Decimal `json:"gross_total"`
	TotalDiscount       decimal.Decimal `json:"total_discount"`
	TaxBuckets          []TaxBucket     `json:"tax_buckets"`
	TotalTax            decimal.Decimal `json:"total_tax"`
	AdjustmentAmount    decimal.Decimal `json:"adjustment_amount"`
	AdjustmentName      string          `json:"adjustment_name,omitempty"`
	AdjustmentAccountID string          `json:"adjustment_account_id,omitempty"`
	NetTotal            decimal.Decimal `json:"net_total"`

	GrossTotalBase       decimal.Decimal `json:"gross_total_base"`
	TotalDiscountBase    decimal.Decimal `json:"total_discount_base"`
	TotalTaxBase         decimal.Decimal `json:"total_tax_base"`
	AdjustmentAmountBase decimal.Decimal `json:"adjustment_amount_base"`
	NetTotalBase         decimal.Decimal `json:"net_total_base"`
}

// WarningKind classifies a fallback the editor applied instead of failing.
type WarningKind string

const (
	WarningExchangeRateFallback WarningKind = "exchange_rate_fallback"
	WarningCatalogUnavailable   WarningKind = "catalog_unavailable"
	WarningExchangeRateMissing  WarningKind = "exchange_rate_missing"
)

type Warning struct {
	Kind    WarningKind `json:"kind"`
	RowID   string      `json:"row_id,omitempty"`
	Message string      `json:"message"`
}
