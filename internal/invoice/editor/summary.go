package editor

import (
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/money"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	taxservice "github.com/smallbiznis/salesdesk/internal/tax/service"
)

var two = decimal.NewFromInt(2)

// SplitLocal divides a line's tax into two components that always sum to
// exactly tax.
func SplitLocal(tax decimal.Decimal) (a, b decimal.Decimal) {
	half := money.Round3(tax.Div(two))
	return half, tax.Sub(half)
}

// Summarize aggregates lines into the invoice header. multiplier converts
// into the home currency (1 in home mode).
func Summarize(lines []invoicedomain.LineItem, regime taxdomain.Regime, adj invoicedomain.Adjustment, multiplier decimal.Decimal) invoicedomain.Header {
	gross := decimal.Zero
	discount := decimal.Zero
	componentA := decimal.Zero
	componentB := decimal.Zero
	combined := decimal.Zero

	for _, line := range lines {
		gross = gross.Add(line.TaxableAmount)
		discount = discount.Add(line.DiscountAmount)

		switch regime.Kind {
		case taxdomain.RegimeSplitTaxLocal:
			a, b := SplitLocal(line.TaxAmount)
			componentA = componentA.Add(a)
			componentB = componentB.Add(b)
		case taxdomain.RegimeSplitTaxRemote, taxdomain.RegimeSingleTax:
			combined = combined.Add(line.TaxAmount)
		}
	}

	mirror := func(d decimal.Decimal) decimal.Decimal {
		return money.Round3(d.Mul(multiplier))
	}
	bucket := func(label string, amount decimal.Decimal) invoicedomain.TaxBucket {
		return invoicedomain.TaxBucket{
			Code:       taxservice.BucketCode(label),
			Label:      label,
			Amount:     amount,
			AmountBase: mirror(amount),
		}
	}

	var buckets []invoicedomain.TaxBucket
	totalTax := decimal.Zero
	switch regime.Kind {
	case taxdomain.RegimeSplitTaxLocal:
		buckets = []invoicedomain.TaxBucket{
			bucket(regime.Labels.ComponentA, componentA),
			bucket(regime.Labels.ComponentB, componentB),
		}
		totalTax = componentA.Add(componentB)
	case taxdomain.RegimeSplitTaxRemote:
		buckets = []invoicedomain.TaxBucket{bucket(regime.Labels.Combined, combined)}
		totalTax = combined
	case taxdomain.RegimeSingleTax:
		buckets = []invoicedomain.TaxBucket{bucket(regime.Name, combined)}
		totalTax = combined
	}

	net := gross.Add(totalTax).Add(adj.Amount)
	return invoicedomain.Header{
		GrossTotal:          gross,
		TotalDiscount:       discount,
		TaxBuckets:          buckets,
		TotalTax:            totalTax,
		AdjustmentAmount:    adj.Amount,
		AdjustmentName:      adj.Name,
		AdjustmentAccountID: adj.AccountID,
		NetTotal:            net,

		GrossTotalBase:       mirror(gross),
		TotalDiscountBase:    mirror(discount),
		TotalTaxBase:         mirror(totalTax),
		AdjustmentAmountBase: mirror(adj.Amount),
		NetTotalBase:         mirror(net),
	}
}
