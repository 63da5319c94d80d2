package money

import "github.com/shopspring/decimal"

// Monetary amounts are finalized at 2 decimal places, rates carry 4.
const (
	AmountScale = 2
	RateScale   = 4
)

// RoundAmount rounds a monetary amount half-up to the cent. Always the last
// step of a computation, never applied mid-formula.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// RoundRate rounds a rate or percentage to 4 decimal places.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// FromFloat converts float64 to decimal.Decimal.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// FromString converts string to decimal.Decimal.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
