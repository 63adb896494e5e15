// Package pricing computes the amounts of a single invoice line.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/money"
)

// Input carries the editable figures of one line, already parsed.
type Input struct {
	Quantity           decimal.Decimal
	Rate               decimal.Decimal
	DiscountPercentage decimal.Decimal
	TaxPercentage      decimal.Decimal
}

// Amounts are the derived figures of one line. TaxableAmount is the
// post-discount, pre-tax subtotal.
type Amounts struct {
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	NetAmount      decimal.Decimal
}

// Calculate applies the discount before tax, rounding every step to three
// decimals.
func Calculate(in Input) Amounts {
	amount := money.Round3(in.Quantity.Mul(in.Rate))
	discount := money.Percent(amount, in.DiscountPercentage)
	taxable := money.Round3(amount.Sub(discount))
	tax := money.Percent(taxable, in.TaxPercentage)
	net := money.Round3(taxable.Add(tax))

	return Amounts{
		Amount:         amount,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		NetAmount:      net,
	}
}

// CalculateText parses raw editor text fail-soft and calculates.
func CalculateText(quantity, rate, discountPercentage, taxPercentage string) Amounts {
	return Calculate(Input{
		Quantity:           money.ParseOrZero(quantity),
		Rate:               money.ParseOrZero(rate),
		DiscountPercentage: money.ParseOrZero(discountPercentage),
		TaxPercentage:      money.ParseOrZero(taxPercentage),
	})
}

// Mirror converts transaction-currency amounts into home currency.
func Mirror(a Amounts, multiplier decimal.Decimal) Amounts {
	conv := func(d decimal.Decimal) decimal.Decimal {
		return money.Round3(d.Mul(multiplier))
	}
	return Amounts{
		Amount:         conv(a.Amount),
		DiscountAmount: conv(a.DiscountAmount),
		TaxableAmount:  conv(a.TaxableAmount),
		TaxAmount:      conv(a.TaxAmount),
		NetAmount:      conv(a.NetAmount),
	}
}

// Multiplier returns the home-currency multiplier for the active mode. A
// non-positive rate in foreign mode falls back to 1; ok reports whether the
// fallback was avoided.
func Multiplier(foreign bool, exchangeRate decimal.Decimal) (multiplier decimal.Decimal, ok bool) {
	if !foreign {
		return decimal.NewFromInt(1), true
	}
	if !money.Positive(exchangeRate) {
		return decimal.NewFromInt(1), false
	}
	return exchangeRate, true
}
