// Package calculator computes the discount a matched benefit grants for one
// transaction, under the benefit's per-transaction minimum spend and monthly
// cap.
//
// The calculator is pure: it never touches the ledger. The caller records the
// returned discount against the transaction's month, which keeps the
// order-sensitive cap accounting in exactly one place.
package calculator

import (
	"github.com/shopspring/decimal"

	"card-profitability-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of a discount calculation. EffectiveRate is the
// discount expressed as a percentage of the transaction amount.
type Result struct {
	Discount      decimal.Decimal
	EffectiveRate float64
}

// zero is the no-discount result. Malformed rates, reached caps, and
// below-minimum transactions all land here; none of them are errors.
func zero() Result {
	return Result{Discount: decimal.Zero, EffectiveRate: 0}
}

// Calculate returns the discount for a transaction of the given amount under
// the matched benefit, where granted is the cumulative discount the benefit
// has already paid out in the transaction's month.
//
// Rules apply in order:
//  1. a missing rate value or unit yields zero (tolerated, not fatal)
//  2. a monthly cap already reached is a hard stop, no partial allowance
//  3. an amount below the benefit's minimum spend yields zero
//  4. fixed_amount pays the flat rate value; percentage pays amount*value/100
//  5. a discount that would breach the monthly cap is clipped to the exact
//     remaining headroom, and the effective rate is recomputed
//  6. a non-positive final discount is treated as no discount
func Calculate(amount decimal.Decimal, benefit *models.Benefit, granted decimal.Decimal) Result {
	if benefit.Rate.IsZero() {
		return zero()
	}

	limit := benefit.Limit
	if limit.HasMonthlyLimit() && granted.GreaterThanOrEqual(limit.MonthlyLimitAmount) {
		return zero()
	}

	if limit.HasMinimumSpend() && amount.LessThan(limit.TransactionLimitAmount) {
		return zero()
	}

	var discount decimal.Decimal
	var rate float64

	switch benefit.Rate.Unit {
	case models.RateUnitFixedAmount:
		discount = benefit.Rate.Value
		rate = percentOf(discount, amount)
	case models.RateUnitPercentage:
		discount = amount.Mul(benefit.Rate.Value).Div(hundred)
		rate, _ = benefit.Rate.Value.Float64()
	default:
		return zero()
	}

	if limit.HasMonthlyLimit() && granted.Add(discount).GreaterThan(limit.MonthlyLimitAmount) {
		discount = limit.MonthlyLimitAmount.Sub(granted)
		rate = percentOf(discount, amount)
	}

	if !discount.IsPositive() {
		return zero()
	}

	return Result{Discount: discount, EffectiveRate: rate}
}

// percentOf returns part/whole*100, guarding a non-positive denominator to 0.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	rate, _ := part.Div(whole).Mul(hundred).Float64()
	return rate
}
