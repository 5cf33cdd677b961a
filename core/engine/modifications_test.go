package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

// TestApplyModifications tests the modification pipeline ordering:
// extras first, then percentages, then fixed amounts
func TestApplyModifications(t *testing.T) {
	tests := []struct {
		name           string
		base           decimal.Decimal
		config         types.ModificationConfig
		final          decimal.Decimal
		totalDiscount  decimal.Decimal
		totalSurcharge decimal.Decimal
	}{
		{
			name:           "zero config changes nothing",
			base:           decimal.NewFromInt(1000),
			config:         types.ModificationConfig{},
			final:          decimal.NewFromInt(1000),
			totalDiscount:  decimal.Zero,
			totalSurcharge: decimal.Zero,
		},
		{
			name: "fixed surcharge escapes the percentage discount",
			base: decimal.NewFromInt(100),
			config: types.ModificationConfig{
				DiscountPercent: decimal.NewFromInt(10),
				FixedSurcharge:  decimal.NewFromInt(20),
			},
			// 100 * 0.9 + 20, not (100 + 20) * 0.9.
			final:          decimal.NewFromInt(110),
			totalDiscount:  decimal.NewFromInt(10),
			totalSurcharge: decimal.NewFromInt(20),
		},
		{
			name: "extra costs enter before the percentage discount",
			base: decimal.NewFromInt(100),
			config: types.ModificationConfig{
				ExtraCosts:      decimal.NewFromInt(100),
				DiscountPercent: decimal.NewFromInt(50),
			},
			final:          decimal.NewFromInt(100),
			totalDiscount:  decimal.NewFromInt(100),
			totalSurcharge: decimal.Zero,
		},
		{
			name: "fixed discount clamps at zero",
			base: decimal.NewFromInt(50),
			config: types.ModificationConfig{
				FixedDiscount: decimal.NewFromInt(100),
			},
			final:          decimal.Zero,
			totalDiscount:  decimal.NewFromInt(100),
			totalSurcharge: decimal.Zero,
		},
		{
			name: "all steps combined",
			base: decimal.NewFromInt(1000),
			config: types.ModificationConfig{
				ExtraCosts:       decimal.NewFromInt(200),
				DiscountPercent:  decimal.NewFromInt(10),
				SurchargePercent: decimal.NewFromInt(5),
				FixedDiscount:    decimal.NewFromInt(34),
				FixedSurcharge:   decimal.NewFromInt(10),
			},
			// 1200 * 0.9 = 1080, * 1.05 = 1134, - 34 + 10 = 1110.
			final:          decimal.NewFromInt(1110),
			totalDiscount:  decimal.NewFromInt(154),
			totalSurcharge: decimal.NewFromInt(64),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modified, err := ApplyModifications(tt.base, tt.config)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !modified.FinalPrice.Equal(tt.final) {
				t.Errorf("final = %s, expected %s", modified.FinalPrice, tt.final)
			}
			if !modified.TotalDiscount.Equal(tt.totalDiscount) {
				t.Errorf("total discount = %s, expected %s", modified.TotalDiscount, tt.totalDiscount)
			}
			if !modified.TotalSurcharge.Equal(tt.totalSurcharge) {
				t.Errorf("total surcharge = %s, expected %s", modified.TotalSurcharge, tt.totalSurcharge)
			}
			if !modified.BasePrice.Equal(tt.base) {
				t.Errorf("base = %s, expected %s", modified.BasePrice, tt.base)
			}
		})
	}
}

// TestApplyModificationsValidation tests the bounds checks
func TestApplyModificationsValidation(t *testing.T) {
	tests := []struct {
		name   string
		base   decimal.Decimal
		config types.ModificationConfig
	}{
		{
			name:   "negative base price",
			base:   decimal.NewFromInt(-1),
			config: types.ModificationConfig{},
		},
		{
			name:   "discount above 100",
			base:   decimal.NewFromInt(100),
			config: types.ModificationConfig{DiscountPercent: decimal.NewFromInt(101)},
		},
		{
			name:   "negative discount",
			base:   decimal.NewFromInt(100),
			config: types.ModificationConfig{DiscountPercent: decimal.NewFromInt(-1)},
		},
		{
			name:   "surcharge above 100",
			base:   decimal.NewFromInt(100),
			config: types.ModificationConfig{SurchargePercent: decimal.NewFromInt(200)},
		},
		{
			name:   "negative fixed discount",
			base:   decimal.NewFromInt(100),
			config: types.ModificationConfig{FixedDiscount: decimal.NewFromInt(-5)},
		},
		{
			name:   "negative extra costs",
			base:   decimal.NewFromInt(100),
			config: types.ModificationConfig{ExtraCosts: decimal.NewFromInt(-5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyModifications(tt.base, tt.config)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.IsType(err, errors.TypeValidation) {
				t.Errorf("expected %s, got %v", errors.TypeValidation, err)
			}
		})
	}
}
