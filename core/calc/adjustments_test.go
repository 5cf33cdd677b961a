package calc

import (
	"testing"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
)

// TestAdjustmentQuantityAsymmetry proves per_piece deltas scale with
// quantity while every other method adds the delta exactly once
func TestAdjustmentQuantityAsymmetry(t *testing.T) {
	table := NewAdjustmentTable()
	table.Set(types.CategoryModule, AttrTechnology, "bifacial", decimal.NewFromInt(50))

	item := types.LineItem{
		Category:   types.CategoryModule,
		Technology: "bifacial",
	}

	perPiece, err := Resolve(decimal.NewFromInt(100), decimal.NewFromInt(20), types.MethodPerPiece, types.CalcContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Apply(perPiece, item)
	if !perPiece.Total.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("per_piece: expected 2000 + 50*20 = 3000, got %s", perPiece.Total)
	}

	lump, err := Resolve(decimal.NewFromInt(100), decimal.NewFromInt(20), types.MethodLumpSum, types.CalcContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Apply(lump, item)
	if !lump.Total.Equal(decimal.NewFromInt(150)) {
		t.Errorf("lump_sum: expected 100 + 50 = 150, got %s", lump.Total)
	}
}

// TestAdjustmentFallbackScalesLikePerPiece proves a line resolved via
// the unknown-method fallback scales its deltas with quantity
func TestAdjustmentFallbackScalesLikePerPiece(t *testing.T) {
	table := NewAdjustmentTable()
	table.Set(types.CategoryModule, AttrTechnology, "bifacial", decimal.NewFromInt(50))

	item := types.LineItem{Category: types.CategoryModule, Technology: "bifacial"}

	result, err := Resolve(decimal.NewFromInt(100), decimal.NewFromInt(20), types.Method("banana"), types.CalcContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Apply(result, item)
	if !result.Total.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected fallback result to scale deltas, got %s", result.Total)
	}
}

// TestAdjustmentForUnmatched tests the zero default for missing rules
func TestAdjustmentForUnmatched(t *testing.T) {
	table := NewAdjustmentTable()
	table.Set(types.CategoryModule, AttrTechnology, "bifacial", decimal.NewFromInt(50))

	tests := []struct {
		name      string
		category  types.Category
		attribute string
		value     string
	}{
		{"unknown category", types.CategoryStorage, AttrTechnology, "bifacial"},
		{"unknown attribute", types.CategoryModule, AttrDesign, "bifacial"},
		{"unknown value", types.CategoryModule, AttrTechnology, "polycrystalline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := table.AdjustmentFor(tt.category, tt.attribute, tt.value)
			if !delta.IsZero() {
				t.Errorf("expected zero delta, got %s", delta)
			}
		})
	}
}

// TestAdjustmentSumsAttributes tests that deltas of all populated
// attributes are summed and recorded per rule
func TestAdjustmentSumsAttributes(t *testing.T) {
	table := NewAdjustmentTable()
	table.Set(types.CategoryModule, AttrTechnology, "glass_glass", decimal.NewFromInt(28))
	table.Set(types.CategoryModule, AttrEfficiencyTier, "premium", decimal.NewFromInt(22))

	item := types.LineItem{
		Category:       types.CategoryModule,
		Technology:     "glass_glass",
		EfficiencyTier: "premium",
		Design:         "full_black",
	}

	result, err := Resolve(decimal.NewFromInt(200), decimal.NewFromInt(2), types.MethodPerPiece, types.CalcContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Apply(result, item)

	// 200*2 + (28+22)*2 = 500; full_black has no rule and contributes nothing
	if !result.Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected total 500, got %s", result.Total)
	}
	if len(result.Adjustments) != 2 {
		t.Fatalf("expected 2 recorded adjustments, got %d", len(result.Adjustments))
	}
	if delta, ok := result.Adjustments["technology:glass_glass"]; !ok || !delta.Equal(decimal.NewFromInt(28)) {
		t.Errorf("expected raw delta 28 under technology:glass_glass, got %s", delta)
	}
	if delta, ok := result.Adjustments["efficiency_tier:premium"]; !ok || !delta.Equal(decimal.NewFromInt(22)) {
		t.Errorf("expected raw delta 22 under efficiency_tier:premium, got %s", delta)
	}
}

// TestAdjustmentNoMatchLeavesResult tests that a line without matching
// rules keeps its resolved total untouched
func TestAdjustmentNoMatchLeavesResult(t *testing.T) {
	table := DefaultTable()

	item := types.LineItem{Category: types.CategoryGeneric}
	result, err := Resolve(decimal.NewFromInt(99), decimal.NewFromInt(3), types.MethodPerPiece, types.CalcContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Apply(result, item)

	if !result.Total.Equal(decimal.NewFromInt(297)) {
		t.Errorf("expected untouched total 297, got %s", result.Total)
	}
	if len(result.Adjustments) != 0 {
		t.Errorf("expected no recorded adjustments, got %v", result.Adjustments)
	}
}

// TestDefaultTableRules tests the built-in table listing
func TestDefaultTableRules(t *testing.T) {
	table := DefaultTable()
	rules := table.Rules()

	if len(rules) == 0 {
		t.Fatal("expected built-in rules")
	}
	if len(rules) != table.Len() {
		t.Errorf("Rules() returned %d entries, Len() says %d", len(rules), table.Len())
	}
	for i := 1; i < len(rules); i++ {
		prev, cur := rules[i-1], rules[i]
		if prev.Category > cur.Category {
			t.Fatalf("rules not sorted at %d: %s after %s", i, cur.Category, prev.Category)
		}
	}

	delta := table.AdjustmentFor(types.CategoryInverter, AttrFeatureSet, "hybrid")
	if !delta.Equal(decimal.NewFromInt(180)) {
		t.Errorf("expected built-in hybrid delta 180, got %s", delta)
	}
}
