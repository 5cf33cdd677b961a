package vat

import (
	"testing"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

// TestCalculateMixed tests the blended calculation across categories
func TestCalculateMixed(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.CalculateMixed([]Item{
		{Net: decimal.NewFromInt(100), Category: types.VATStandard},
		{Net: decimal.NewFromInt(100), Category: types.VATReduced},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Net.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected net 200, got %s", result.Net)
	}
	if !result.Tax.Equal(decimal.NewFromInt(26)) {
		t.Errorf("expected tax 26, got %s", result.Tax)
	}
	if !result.Gross.Equal(decimal.NewFromInt(226)) {
		t.Errorf("expected gross 226, got %s", result.Gross)
	}
	if !result.Rate.Equal(decimal.NewFromInt(13)) {
		t.Errorf("expected effective rate 13.0, got %s", result.Rate)
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown portions, got %d", len(result.Breakdown))
	}
	standard := result.Breakdown[0]
	if standard.Category != types.VATStandard || !standard.Tax.Equal(decimal.NewFromInt(19)) {
		t.Errorf("expected standard portion with tax 19, got %+v", standard)
	}
	reduced := result.Breakdown[1]
	if reduced.Category != types.VATReduced || !reduced.Tax.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected reduced portion with tax 7, got %+v", reduced)
	}
}

// TestCalculateMixedSingleCategory proves single-category input
// short-circuits to the plain calculation without a breakdown
func TestCalculateMixedSingleCategory(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.CalculateMixed([]Item{
		{Net: decimal.NewFromInt(50), Category: types.VATStandard},
		{Net: decimal.NewFromInt(150)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Category != types.VATStandard {
		t.Errorf("expected category standard on short-circuit, got %q", result.Category)
	}
	if len(result.Breakdown) != 0 {
		t.Errorf("expected no breakdown on short-circuit, got %d portions", len(result.Breakdown))
	}
	if !result.Net.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected net 200, got %s", result.Net)
	}
	if !result.Tax.Equal(decimal.NewFromInt(38)) {
		t.Errorf("expected tax 38, got %s", result.Tax)
	}
}

// TestCalculateMixedGroupsRepeatedCategories tests per-category grouping
func TestCalculateMixedGroupsRepeatedCategories(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.CalculateMixed([]Item{
		{Net: decimal.NewFromInt(100), Category: types.VATStandard},
		{Net: decimal.NewFromInt(40), Category: types.VATReduced},
		{Net: decimal.NewFromInt(60), Category: types.VATStandard},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Breakdown) != 2 {
		t.Fatalf("expected 2 portions, got %d", len(result.Breakdown))
	}
	if !result.Breakdown[0].Net.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected standard portion net 160, got %s", result.Breakdown[0].Net)
	}
	if !result.Net.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected net 200, got %s", result.Net)
	}
}

// TestCalculateMixedEmpty tests the zero result for empty input
func TestCalculateMixedEmpty(t *testing.T) {
	calc := NewCalculator("DE", nil)
	result, err := calc.CalculateMixed(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Net.IsZero() || !result.Tax.IsZero() || !result.Gross.IsZero() {
		t.Errorf("expected zero calculation, got %+v", result)
	}
}

// TestCalculate tests the single-category path
func TestCalculate(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.Calculate(decimal.NewFromInt(100), types.VATReduced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Tax.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected tax 7, got %s", result.Tax)
	}
	if !result.Gross.Equal(decimal.NewFromInt(107)) {
		t.Errorf("expected gross 107, got %s", result.Gross)
	}

	if _, err := calc.Calculate(decimal.NewFromInt(-1), types.VATStandard); err == nil {
		t.Fatal("expected validation error for negative net")
	} else if !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("expected %s, got %v", errors.TypeValidation, err)
	}
}

// TestCalculateRate tests explicit-rate calculation and its bounds
func TestCalculateRate(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.CalculateRate(decimal.NewFromInt(200), decimal.NewFromFloat(5.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Tax.Equal(decimal.NewFromInt(11)) {
		t.Errorf("expected tax 11, got %s", result.Tax)
	}

	for _, rate := range []decimal.Decimal{decimal.NewFromInt(-1), decimal.NewFromInt(101)} {
		if _, err := calc.CalculateRate(decimal.NewFromInt(100), rate); err == nil {
			t.Errorf("expected validation error for rate %s", rate)
		} else if !errors.IsType(err, errors.TypeValidation) {
			t.Errorf("expected %s, got %v", errors.TypeValidation, err)
		}
	}
}

// TestRateFor tests category resolution including the standard fallback
func TestRateFor(t *testing.T) {
	calc := NewCalculator("DE", nil)

	tests := []struct {
		name     string
		category types.VATCategory
		want     decimal.Decimal
	}{
		{"standard", types.VATStandard, decimal.NewFromInt(19)},
		{"reduced", types.VATReduced, decimal.NewFromInt(7)},
		{"zero", types.VATZero, decimal.Zero},
		{"exempt", types.VATExempt, decimal.Zero},
		{"empty defaults to standard", types.VATCategory(""), decimal.NewFromInt(19)},
		{"unknown falls back to standard", types.VATCategory("luxury"), decimal.NewFromInt(19)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.RateFor(tt.category)
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestAliases tests custom category names and the malformed-target fixup
func TestAliases(t *testing.T) {
	calc := NewCalculator("DE", nil)

	calc.SetAlias(types.VATCategory("books"), types.VATReduced)
	if got := calc.RateFor(types.VATCategory("books")); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected aliased rate 7, got %s", got)
	}

	// A broken target must never fail; it degrades to standard.
	calc.SetAlias(types.VATCategory("insurance"), types.VATCategory("no_such_category"))
	if got := calc.RateFor(types.VATCategory("insurance")); !got.Equal(decimal.NewFromInt(19)) {
		t.Errorf("expected fixed-up standard rate 19, got %s", got)
	}
}

// TestNetFromGross tests the inverse direction
func TestNetFromGross(t *testing.T) {
	calc := NewCalculator("DE", nil)

	result, err := calc.NetFromGross(decimal.NewFromInt(119), decimal.NewFromInt(19))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Net.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected net 100, got %s", result.Net)
	}
	if !result.Tax.Equal(decimal.NewFromInt(19)) {
		t.Errorf("expected tax 19, got %s", result.Tax)
	}
	if !result.Gross.Equal(decimal.NewFromInt(119)) {
		t.Errorf("expected gross 119, got %s", result.Gross)
	}
}

// TestCountryTables tests country selection and the default fallback
func TestCountryTables(t *testing.T) {
	ch := NewCalculator("ch", nil)
	if got := ch.RateFor(types.VATStandard); !got.Equal(decimal.NewFromFloat(8.1)) {
		t.Errorf("expected CH standard 8.1, got %s", got)
	}

	unknown := NewCalculator("XX", nil)
	if got := unknown.RateFor(types.VATStandard); !got.Equal(decimal.NewFromInt(19)) {
		t.Errorf("expected default-country standard 19, got %s", got)
	}
	if unknown.Country() != "XX" {
		t.Errorf("expected country XX to be kept, got %s", unknown.Country())
	}
}
