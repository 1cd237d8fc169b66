// Package discount computes coupon discount amounts over cart subtotals.
// All amounts are integer minor units of the cart currency.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// Compute returns the discount a coupon grants against the given subtotal.
// A subtotal below the coupon's minimum purchase yields zero rather than an
// error so callers can surface the outcome as a normal recalculation. The
// result is capped at MaxDiscountAmount when set and never exceeds the
// subtotal itself.
func Compute(coupon models.Coupon, subtotal int) int {
	if subtotal <= 0 {
		return 0
	}
	if subtotal < coupon.MinPurchaseAmount {
		return 0
	}

	var raw int
	switch coupon.DiscountType {
	case enums.CouponDiscountTypePercentage:
		raw = percentageOf(subtotal, coupon.DiscountValue)
	case enums.CouponDiscountTypeFixed:
		raw = coupon.DiscountValue
	default:
		return 0
	}

	if raw < 0 {
		return 0
	}
	if coupon.MaxDiscountAmount != nil && raw > *coupon.MaxDiscountAmount {
		raw = *coupon.MaxDiscountAmount
	}
	if raw > subtotal {
		raw = subtotal
	}
	return raw
}

// ComputeForItems runs Compute over the coupon's eligible subtotal: a coupon
// with ApplicableCategories set only discounts line items in those
// categories, and its minimum purchase is measured against the same eligible
// amount. An empty filter covers the whole cart.
func ComputeForItems(coupon models.Coupon, items []models.CartItem) int {
	return Compute(coupon, EligibleSubtotal(coupon, items))
}

// EligibleSubtotal sums the line totals the coupon may discount.
func EligibleSubtotal(coupon models.Coupon, items []models.CartItem) int {
	if len(coupon.ApplicableCategories) == 0 {
		subtotal := 0
		for _, item := range items {
			subtotal += item.LineTotal()
		}
		return subtotal
	}

	allowed := make(map[string]struct{}, len(coupon.ApplicableCategories))
	for _, category := range coupon.ApplicableCategories {
		allowed[category] = struct{}{}
	}

	subtotal := 0
	for _, item := range items {
		if _, ok := allowed[item.Category]; ok {
			subtotal += item.LineTotal()
		}
	}
	return subtotal
}

// percentageOf computes subtotal*percent/100 in decimal space and truncates
// towards zero so the buyer is never over-discounted by rounding.
func percentageOf(subtotal, percent int) int {
	amount := decimal.NewFromInt(int64(subtotal)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(oneHundred)
	return int(amount.IntPart())
}
