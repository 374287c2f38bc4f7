package ledger

import "github.com/shopspring/decimal"

// Points convert at the fixed rate of 1 point = $0.01.
//
// Rounding rule: every monetary or point rounding in the ledger uses
// round-half-up (decimal.Round, half away from zero; all ledger amounts
// are non-negative so the two agree). Dollar values round to 2 decimals,
// point counts to whole points.
var pointRate = decimal.NewFromFloat(0.01)

// DollarValue returns the dollar value of a point amount.
func DollarValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(pointRate).Round(2)
}

// DollarValueFloat returns the dollar value of a point amount as float64
// for JSON responses and informational columns.
func DollarValueFloat(points int64) float64 {
	f, _ := DollarValue(points).Float64()
	return f
}

// ProportionalPoints returns round_half_up(refund/original * points),
// the share of a lot's points covered by a partial refund.
func ProportionalPoints(refundAmount, originalAmount float64, points int64) int64 {
	fraction := decimal.NewFromFloat(refundAmount).Div(decimal.NewFromFloat(originalAmount))
	return fraction.Mul(decimal.NewFromInt(points)).Round(0).IntPart()
}

// FeePoints returns round_half_up(points * ratePercent / 100).
func FeePoints(points int64, ratePercent float64) int64 {
	if ratePercent <= 0 {
		return 0
	}
	return decimal.NewFromInt(points).
		Mul(decimal.NewFromFloat(ratePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
