// Package valuation holds the pure pricing math behind the buy signal.
package valuation

import (
	"github.com/shopspring/decimal"
)

// DefaultMarginOfSafety is the discount applied to intrinsic value when no other value is configured.
var DefaultMarginOfSafety = decimal.NewFromFloat(0.5)

// DefaultMoatFactor is suggested when market cap is unknown.
var DefaultMoatFactor = decimal.NewFromFloat(0.2)

var (
	minDerivedMoat = decimal.NewFromFloat(0.1)
	maxDerivedMoat = decimal.NewFromFloat(0.3)
	hundred        = decimal.NewFromInt(100)
	one            = decimal.NewFromInt(1)
)

// IntrinsicValue returns high * moatFactor. The caller validates moatFactor.
func IntrinsicValue(high, moatFactor decimal.Decimal) decimal.Decimal {
	return high.Mul(moatFactor)
}

// RecommendedBuyPrice discounts the intrinsic value by the margin of safety.
func RecommendedBuyPrice(intrinsicValue, marginOfSafety decimal.Decimal) decimal.Decimal {
	return intrinsicValue.Mul(one.Sub(marginOfSafety))
}

// MarginOfSafetyPercent returns how far below intrinsic value the current price sits,
// in percent. The result is invalid when intrinsic value is not positive.
func MarginOfSafetyPercent(intrinsicValue, currentPrice decimal.Decimal) decimal.NullDecimal {
	if !intrinsicValue.IsPositive() {
		return decimal.NullDecimal{}
	}
	abs := intrinsicValue.Abs()
	return decimal.NewNullDecimal(abs.Sub(currentPrice).Div(abs).Mul(hundred))
}

// DerivedMoatFactor suggests a moat factor from the liquidity to market cap ratio,
// clamped to [0.1, 0.3]. It is only a starting value for the user.
func DerivedMoatFactor(marketCap, liquidity decimal.Decimal) decimal.Decimal {
	if !marketCap.IsPositive() {
		return DefaultMoatFactor
	}
	ratio := liquidity.Div(marketCap)
	return decimal.Min(decimal.Max(ratio, minDerivedMoat), maxDerivedMoat)
}

// HistoricalHigh returns the ATH when known, the current price otherwise.
func HistoricalHigh(ath decimal.NullDecimal, currentPrice decimal.Decimal) decimal.Decimal {
	if ath.Valid {
		return ath.Decimal
	}
	return currentPrice
}

// LiquidityRatio is the unclamped liquidity to market cap ratio, zero without a market cap.
func LiquidityRatio(marketCap, liquidity decimal.Decimal) decimal.Decimal {
	if !marketCap.IsPositive() {
		return decimal.Zero
	}
	return liquidity.Div(marketCap)
}
