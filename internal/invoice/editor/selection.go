package editor

import (
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/currency"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
)

// ResolveSelection fills a line from catalog sales data. With no data the line
// keeps only its item reference and all amounts are zero; ok is false then.
func ResolveSelection(line invoicedomain.LineItem, data *catalogdomain.ItemSalesData, st currency.State, regime taxdomain.Regime) (invoicedomain.LineItem, bool) {
	if data == nil {
		return bareItem(line), false
	}

	price := data.Price
	line.RateBase = &price
	line.Rate = currency.RateFromBase(price, st)
	if !line.Quantity.IsPositive() {
		line.Quantity = decimal.NewFromInt(1)
	}
	line.TaxPercentage = data.TaxPercentage
	if !regime.TaxEnabled() {
		line.TaxPercentage = decimal.Zero
	}

	line.ItemName = data.Name
	if data.SalesDescription != "" {
		line.Description = data.SalesDescription
	}
	line.UnitID = data.UnitID
	line.UnitName = data.UnitName
	line.CategoryID = data.TaxCategoryID
	line.TaxCategoryName = data.TaxCategoryName
	line.AccountID = data.SalesAccountID

	multiplier, _ := st.Multiplier()
	line.Recalculate(multiplier)
	return line, true
}

func bareItem(line invoicedomain.LineItem) invoicedomain.LineItem {
	line.ItemName = ""
	line.UnitID = ""
	line.UnitName = ""
	line.CategoryID = ""
	line.TaxCategoryName = ""
	line.AccountID = ""
	line.Rate = decimal.Zero
	line.RateBase = nil
	line.TaxPercentage = decimal.Zero
	line.ClearAmounts()
	return line
}
