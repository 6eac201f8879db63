package types

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in the smallest unit of the settlement currency
// (cents for USD). All internal arithmetic happens in minor units; the
// conversion to major units happens exactly once, at the gateway boundary.
type Money int64

// ToMajorUnits converts minor units to major currency units (e.g. 1050 -> 10.50)
// for transmission to the payment gateway.
func (m Money) ToMajorUnits() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(100))
}

// MoneyFromMajorUnits converts a gateway-side major-unit amount back into
// minor units, rounding half away from zero to the nearest cent.
func MoneyFromMajorUnits(d decimal.Decimal) Money {
	return Money(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// MoneyFromDecimal rounds a minor-unit decimal amount to a whole Money value.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(0).IntPart())
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

func (m Money) IsPositive() bool {
	return m > 0
}

func (m Money) IsNegative() bool {
	return m < 0
}
