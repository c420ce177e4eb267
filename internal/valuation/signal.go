package valuation

import (
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/shopspring/decimal"
)

// Signal is the valuation view of a tracked project
type Signal struct {
	IntrinsicValue        decimal.Decimal     `json:"intrinsicValue"`
	RecommendedBuyPrice   decimal.Decimal     `json:"recommendedBuyPrice"`
	MarginOfSafetyPercent decimal.NullDecimal `json:"marginOfSafetyPercent"`
	BuyOpportunity        bool                `json:"buyOpportunity"`
}

// Calculator evaluates projects against a fixed margin of safety
type Calculator struct {
	marginOfSafety decimal.Decimal
}

// NewCalculator creates a calculator. A zero margin falls back to DefaultMarginOfSafety.
func NewCalculator(marginOfSafety decimal.Decimal) *Calculator {
	if marginOfSafety.IsZero() {
		marginOfSafety = DefaultMarginOfSafety
	}
	return &Calculator{marginOfSafety: marginOfSafety}
}

// Evaluate computes the signal for a project.
func (c *Calculator) Evaluate(p models.Project) Signal {
	high := HistoricalHigh(p.ATH, p.CurrentPrice)
	intrinsic := IntrinsicValue(high, p.MoatFactor)
	buyPrice := RecommendedBuyPrice(intrinsic, c.marginOfSafety)
	return Signal{
		IntrinsicValue:        intrinsic,
		RecommendedBuyPrice:   buyPrice,
		MarginOfSafetyPercent: MarginOfSafetyPercent(intrinsic, p.CurrentPrice),
		BuyOpportunity:        p.CurrentPrice.LessThan(buyPrice),
	}
}
