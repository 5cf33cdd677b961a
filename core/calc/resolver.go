// Package calc implements the calculation method resolver and the
// feature adjustment rules applied on top of resolved line totals.
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

var one = decimal.NewFromInt(1)

// Resolve maps a unit net price, a quantity and a method tag to a line
// total. Unknown method tags fall back to per_piece and attach a
// warning note; they are never an error. Resolve is a pure function of
// its inputs.
func Resolve(unitPrice, quantity decimal.Decimal, method types.Method, ctx types.CalcContext) (*types.CalculationResult, error) {
	if unitPrice.IsNegative() {
		return nil, errors.Validation("unit price must not be negative").
			WithContext("field", "unit_net_price").
			WithContext("value", unitPrice.String())
	}
	if quantity.IsNegative() {
		return nil, errors.Validation("quantity must not be negative").
			WithContext("field", "quantity").
			WithContext("value", quantity.String())
	}
	if method == "" {
		return nil, errors.Validation("calculation method must not be empty").
			WithContext("field", "method")
	}

	result := &types.CalculationResult{
		BasePrice: unitPrice,
		Quantity:  quantity,
		Method:    method,
	}

	switch method {
	case types.MethodPerPiece, types.MethodPerMeter:
		result.Factor = quantity

	case types.MethodLumpSum:
		result.Factor = one
		if !quantity.Equal(one) {
			result.Notes = append(result.Notes,
				fmt.Sprintf("lump_sum charges the unit price once, quantity %s ignored", quantity))
		}

	case types.MethodPerKWP:
		capacity, ok := resolveCapacity(quantity, ctx)
		if !ok {
			result.Method = types.MethodPerPiece
			result.Factor = quantity
			result.Notes = append(result.Notes,
				"no capacity figure available for per_kwp, falling back to per_piece")
			break
		}
		result.Factor = capacity

	case types.MethodPerSqm:
		area, note := resolveArea(quantity, ctx)
		result.Factor = area
		if note != "" {
			result.Notes = append(result.Notes, note)
		}

	case types.MethodPerHour:
		result.Factor = resolveDuration(quantity, ctx)

	default:
		result.Method = types.MethodPerPiece
		result.Factor = quantity
		result.Notes = append(result.Notes,
			fmt.Sprintf("unknown calculation method %q, falling back to per_piece", method))
	}

	result.Total = unitPrice.Mul(result.Factor)
	if quantity.IsPositive() {
		result.UnitPrice = result.Total.Div(quantity)
	} else {
		result.UnitPrice = result.Total
	}
	return result, nil
}

// resolveCapacity derives the kWp figure for per_kwp pricing. Priority:
// the line's own capacity times quantity, then the system-wide
// capacity, then the power rating times quantity.
func resolveCapacity(quantity decimal.Decimal, ctx types.CalcContext) (decimal.Decimal, bool) {
	if ctx.CapacityKW.IsPositive() {
		return ctx.CapacityKW.Mul(quantity), true
	}
	if ctx.System.TotalCapacityKW.IsPositive() {
		return ctx.System.TotalCapacityKW, true
	}
	if ctx.PowerKW.IsPositive() {
		return ctx.PowerKW.Mul(quantity), true
	}
	return decimal.Zero, false
}

// resolveArea derives the square-meter figure for per_sqm pricing. The
// quantity is the last resort and earns a note when used.
func resolveArea(quantity decimal.Decimal, ctx types.CalcContext) (decimal.Decimal, string) {
	if ctx.AreaM2.IsPositive() {
		return ctx.AreaM2, ""
	}
	if ctx.System.InstallationAreaM2.IsPositive() {
		return ctx.System.InstallationAreaM2, ""
	}
	if ctx.LengthM.IsPositive() && ctx.WidthM.IsPositive() {
		return ctx.LengthM.Mul(ctx.WidthM), ""
	}
	return quantity, "no area figure available for per_sqm, using quantity as area"
}

// resolveDuration derives the hour figure for per_hour pricing.
func resolveDuration(quantity decimal.Decimal, ctx types.CalcContext) decimal.Decimal {
	if ctx.LaborHours.IsPositive() {
		return ctx.LaborHours
	}
	if ctx.System.TotalLaborHours.IsPositive() {
		return ctx.System.TotalLaborHours
	}
	return quantity
}
