// Package currency keeps line rates consistent with the invoice's transaction
// currency. A line's RateBase (home-currency price) is the source of truth;
// Rate is always re-derived from it.
package currency

import (
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/money"
	"github.com/smallbiznis/salesdesk/internal/pricing"
)

var one = decimal.NewFromInt(1)

// State is the currency mode of an invoice.
type State struct {
	// Foreign is true when the transaction currency differs from the home
	// currency.
	Foreign      bool
	ExchangeRate decimal.Decimal
}

// Multiplier converts transaction amounts into the home currency. ok is false
// when foreign mode has no usable rate and 1 was substituted.
func (s State) Multiplier() (decimal.Decimal, bool) {
	return pricing.Multiplier(s.Foreign, s.ExchangeRate)
}

func (s State) equal(o State) bool {
	return s.Foreign == o.Foreign && s.ExchangeRate.Equal(o.ExchangeRate)
}

// Outcome reports what a transition did.
type Outcome struct {
	Changed bool
	// Fallback is set when foreign mode is active without a positive rate.
	Fallback bool
	// Captured counts lines whose RateBase was initialized by the latch.
	Captured int
}

// Synchronizer owns the currency state of one edit session. It is not safe
// for concurrent use.
type Synchronizer struct {
	state   State
	latched bool
}

func NewSynchronizer(state State) *Synchronizer {
	return &Synchronizer{state: state}
}

func (s *Synchronizer) State() State {
	return s.state
}

// Multiplier is the current home-currency multiplier.
func (s *Synchronizer) Multiplier() (decimal.Decimal, bool) {
	return s.state.Multiplier()
}

// SetForeign handles a currency mode toggle.
func (s *Synchronizer) SetForeign(lines []invoicedomain.LineItem, foreign bool) Outcome {
	next := s.state
	next.Foreign = foreign
	return s.Apply(lines, next)
}

// SetExchangeRate handles an edit of the exchange rate.
func (s *Synchronizer) SetExchangeRate(lines []invoicedomain.LineItem, rate decimal.Decimal) Outcome {
	next := s.state
	next.ExchangeRate = rate
	return s.Apply(lines, next)
}

// Apply moves to next and re-derives every line with a selected item. Rows
// without an item keep their rate but get fresh home-currency mirrors. Lines
// are updated in place. A transition to the current state is a no-op.
func (s *Synchronizer) Apply(lines []invoicedomain.LineItem, next State) Outcome {
	prev := s.state
	if prev.equal(next) {
		return Outcome{}
	}
	s.state = next

	var out Outcome
	out.Changed = true
	if !s.latched {
		out.Captured = CaptureRateBase(lines, prev)
		s.latched = true
	}

	multiplier, ok := next.Multiplier()
	out.Fallback = !ok
	for i := range lines {
		line := &lines[i]
		if !line.HasItem() {
			line.Recalculate(multiplier)
			continue
		}
		base := effectiveRateBase(*line, prev)
		line.Rate = RateFromBase(base, next)
		line.Recalculate(multiplier)
	}
	return out
}

// Latched reports whether the one-time RateBase capture already ran.
func (s *Synchronizer) Latched() bool {
	return s.latched
}

// CaptureRateBase fills RateBase for lines that have an item but no stored
// home price, deriving it from the rate under the previous state. It returns
// the number of lines updated.
func CaptureRateBase(lines []invoicedomain.LineItem, prev State) int {
	captured := 0
	for i := range lines {
		line := &lines[i]
		if !line.HasItem() || line.HasRateBase() {
			continue
		}
		base := effectiveRateBase(*line, prev)
		line.RateBase = &base
		captured++
	}
	return captured
}

// RateFromBase derives the transaction-currency rate from a home price.
func RateFromBase(base decimal.Decimal, st State) decimal.Decimal {
	if !st.Foreign {
		return money.Round3(base)
	}
	return money.Round3(base.Div(fxOrOne(st.ExchangeRate)))
}

// BaseFromRate converts a transaction-currency rate into a home price. The
// foreign product is kept unrounded so RateFromBase gives the rate back.
func BaseFromRate(rate decimal.Decimal, st State) decimal.Decimal {
	if !st.Foreign {
		return money.Round3(rate)
	}
	return rate.Mul(fxOrOne(st.ExchangeRate))
}

func effectiveRateBase(line invoicedomain.LineItem, prev State) decimal.Decimal {
	if line.HasRateBase() {
		return *line.RateBase
	}
	if prev.Foreign {
		return line.Rate.Mul(fxOrOne(prev.ExchangeRate))
	}
	return line.Rate
}

func fxOrOne(fx decimal.Decimal) decimal.Decimal {
	if fx.IsPositive() {
		return fx
	}
	return one
}
