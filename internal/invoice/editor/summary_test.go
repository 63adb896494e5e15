package editor

import (
	"testing"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gstLabels = taxdomain.Labels{ComponentA: "CGST", ComponentB: "SGST", Combined: "IGST"}

func taxedLine(taxable, tax string) invoicedomain.LineItem {
	return invoicedomain.LineItem{
		TaxableAmount:  dec(taxable),
		TaxAmount:      dec(tax),
		DiscountAmount: decimal.Zero,
	}
}

func TestSplitLocal_OddCents(t *testing.T) {
	for _, tax := range []string{"0.01", "0.001", "0.003", "32.4", "7.777", "0"} {
		a, b := SplitLocal(dec(tax))
		assert.True(t, a.Add(b).Equal(dec(tax)), "tax %s split into %s + %s", tax, a, b)
	}

	a, b := SplitLocal(dec("0.01"))
	assertDec(t, "0.005", a)
	assertDec(t, "0.005", b)
}

func TestSummarize_Regimes(t *testing.T) {
	lines := []invoicedomain.LineItem{taxedLine("180", "32.4"), taxedLine("0.055", "0.01")}
	one := decimal.NewFromInt(1)

	tests := []struct {
		name     string
		regime   taxdomain.Regime
		codes    []string
		totalTax string
	}{
		{name: "disabled", regime: taxdomain.Disabled(), totalTax: "0"},
		{name: "single", regime: taxdomain.Single("Sales Tax"), codes: []string{"sales-tax"}, totalTax: "32.41"},
		{name: "split local", regime: taxdomain.SplitLocal("GST", gstLabels), codes: []string{"cgst", "sgst"}, totalTax: "32.41"},
		{name: "split remote", regime: taxdomain.SplitRemote("GST", gstLabels), codes: []string{"igst"}, totalTax: "32.41"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := Summarize(lines, tt.regime, invoicedomain.Adjustment{}, one)

			var codes []string
			sum := decimal.Zero
			for _, b := range header.TaxBuckets {
				codes = append(codes, b.Code)
				sum = sum.Add(b.Amount)
			}
			assert.Equal(t, tt.codes, codes)
			assertDec(t, tt.totalTax, header.TotalTax)
			assert.True(t, sum.Equal(header.TotalTax))
			assertDec(t, "180.055", header.GrossTotal)
			assert.True(t, header.NetTotal.Equal(header.GrossTotal.Add(header.TotalTax)))
		})
	}
}

func TestSummarize_AdjustmentOnly(t *testing.T) {
	header := Summarize(nil, taxdomain.Single("VAT"), invoicedomain.Adjustment{Amount: dec("-50")}, decimal.NewFromInt(1))

	assertDec(t, "0", header.GrossTotal)
	assertDec(t, "0", header.TotalTax)
	assertDec(t, "-50", header.NetTotal)
	require.Len(t, header.TaxBuckets, 1)
	assertDec(t, "0", header.TaxBuckets[0].Amount)
}

func TestSummarize_BaseMirrors(t *testing.T) {
	lines := []invoicedomain.LineItem{taxedLine("180", "32.4")}
	header := Summarize(lines, taxdomain.SplitLocal("GST", gstLabels), invoicedomain.Adjustment{Amount: dec("1.5")}, dec("80"))

	assertDec(t, "14400", header.GrossTotalBase)
	assertDec(t, "2592", header.TotalTaxBase)
	assertDec(t, "120", header.AdjustmentAmountBase)
	assertDec(t, "17112", header.NetTotalBase)
	assertDec(t, "1296", header.TaxBuckets[0].AmountBase)
}
