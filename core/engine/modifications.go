// Package engine - discount and surcharge application
package engine

import (
	"github.com/shopspring/decimal"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

// ApplyModifications applies discounts and surcharges to a base price:
//
//	final = (base + extras) * (1 - discount%) * (1 + surcharge%)
//	        - fixed discount + fixed surcharge
//
// clamped at zero. Percentages apply before fixed amounts; that order
// is part of the contract and must not change.
func ApplyModifications(basePrice decimal.Decimal, mods types.ModificationConfig) (*types.ModifiedPrice, error) {
	if basePrice.IsNegative() {
		return nil, errors.Validation("base price must not be negative").
			WithContext("field", "base_price").
			WithContext("value", basePrice.String())
	}
	if err := validateModifications(mods); err != nil {
		return nil, err
	}

	subtotal := basePrice.Add(mods.ExtraCosts)
	afterDiscount := subtotal.Mul(one.Sub(mods.DiscountPercent.Div(hundred)))
	afterSurcharge := afterDiscount.Mul(one.Add(mods.SurchargePercent.Div(hundred)))
	finalPrice := afterSurcharge.Sub(mods.FixedDiscount).Add(mods.FixedSurcharge)
	if finalPrice.IsNegative() {
		finalPrice = decimal.Zero
	}

	return &types.ModifiedPrice{
		BasePrice:      basePrice,
		FinalPrice:     finalPrice,
		TotalDiscount:  subtotal.Sub(afterDiscount).Add(mods.FixedDiscount),
		TotalSurcharge: afterSurcharge.Sub(afterDiscount).Add(mods.FixedSurcharge),
		ExtraCosts:     mods.ExtraCosts,
	}, nil
}

// validateModifications checks percentage bounds and amount signs
func validateModifications(mods types.ModificationConfig) error {
	if mods.DiscountPercent.IsNegative() || mods.DiscountPercent.GreaterThan(hundred) {
		return errors.Validation("discount percent must be between 0 and 100").
			WithContext("field", "discount_percent").
			WithContext("value", mods.DiscountPercent.String())
	}
	if mods.SurchargePercent.IsNegative() || mods.SurchargePercent.GreaterThan(hundred) {
		return errors.Validation("surcharge percent must be between 0 and 100").
			WithContext("field", "surcharge_percent").
			WithContext("value", mods.SurchargePercent.String())
	}
	if mods.FixedDiscount.IsNegative() {
		return errors.Validation("fixed discount must not be negative").
			WithContext("field", "fixed_discount").
			WithContext("value", mods.FixedDiscount.String())
	}
	if mods.FixedSurcharge.IsNegative() {
		return errors.Validation("fixed surcharge must not be negative").
			WithContext("field", "fixed_surcharge").
			WithContext("value", mods.FixedSurcharge.String())
	}
	if mods.ExtraCosts.IsNegative() {
		return errors.Validation("extra costs must not be negative").
			WithContext("field", "extra_costs").
			WithContext("value", mods.ExtraCosts.String())
	}
	return nil
}
