// Package money holds the decimal helpers shared by the invoice editor.
//
// Every amount the editor stores is rounded to three fractional digits.
// Text coming from the editor is parsed leniently: anything that does not
// start with a number is zero.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on every stored amount.
const Places int32 = 3

var (
	hundred = decimal.NewFromInt(100)

	leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)`)
)

// Round3 rounds d to three decimals, half away from zero.
func Round3(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns round3(base * pct / 100).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round3(base.Mul(pct).Div(hundred))
}

// ParseOrZero parses the leading numeric prefix of raw. Empty or malformed
// input yields zero and never an error.
func ParseOrZero(raw string) decimal.Decimal {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero
	}
	match := leadingNumber.FindString(value)
	if match == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// Positive reports whether d is strictly greater than zero.
func Positive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Format renders d with exactly three fractional digits.
func Format(d decimal.Decimal) string {
	return Round3(d).StringFixed(Places)
}

// SanitizeDecimalInput filters a keystroke buffer down to an optional sign,
// digits and a single dot with at most maxDecimals fractional digits.
func SanitizeDecimalInput(raw string, maxDecimals int, allowNegative bool) string {
	var b strings.Builder
	seenDot := false
	decimals := 0
	for i, r := range raw {
		switch {
		case r == '-' && allowNegative && i == 0:
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if seenDot {
				if decimals >= maxDecimals {
					continue
				}
				decimals++
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
