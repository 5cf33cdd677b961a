// Package calc - feature adjustment rules
package calc

import (
	"sort"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
)

// Attribute names consulted by the adjustment rules.
const (
	AttrTechnology     = "technology"
	AttrFeatureSet     = "feature_set"
	AttrDesign         = "design"
	AttrUpgrade        = "upgrade"
	AttrEfficiencyTier = "efficiency_tier"
)

// AdjustmentTable holds additive price deltas as nested lookup tables:
// category -> attribute name -> attribute value -> delta.
type AdjustmentTable struct {
	rules map[types.Category]map[string]map[string]decimal.Decimal
}

// NewAdjustmentTable creates an empty adjustment table
func NewAdjustmentTable() *AdjustmentTable {
	return &AdjustmentTable{
		rules: make(map[types.Category]map[string]map[string]decimal.Decimal),
	}
}

// Set registers a delta for (category, attribute, value), overwriting
// any existing rule
func (t *AdjustmentTable) Set(category types.Category, attribute, value string, delta decimal.Decimal) {
	byAttr, ok := t.rules[category]
	if !ok {
		byAttr = make(map[string]map[string]decimal.Decimal)
		t.rules[category] = byAttr
	}
	byValue, ok := byAttr[attribute]
	if !ok {
		byValue = make(map[string]decimal.Decimal)
		byAttr[attribute] = byValue
	}
	byValue[value] = delta
}

// AdjustmentFor returns the delta for (category, attribute, value), or
// zero when no rule matches
func (t *AdjustmentTable) AdjustmentFor(category types.Category, attribute, value string) decimal.Decimal {
	if byAttr, ok := t.rules[category]; ok {
		if byValue, ok := byAttr[attribute]; ok {
			if delta, ok := byValue[value]; ok {
				return delta
			}
		}
	}
	return decimal.Zero
}

// Apply sums the deltas of every populated feature attribute and adds
// them to the result's total. For per_piece results the summed delta
// scales with quantity; every other method adds it exactly once. The
// raw per-rule deltas are recorded on the result keyed by
// "attribute:value".
func (t *AdjustmentTable) Apply(result *types.CalculationResult, item types.LineItem) {
	attrs := [...]struct {
		name  string
		value string
	}{
		{AttrTechnology, item.Technology},
		{AttrFeatureSet, item.FeatureSet},
		{AttrDesign, item.Design},
		{AttrUpgrade, item.Upgrade},
		{AttrEfficiencyTier, item.EfficiencyTier},
	}

	sum := decimal.Zero
	for _, attr := range attrs {
		if attr.value == "" {
			continue
		}
		delta := t.AdjustmentFor(item.Category, attr.name, attr.value)
		if delta.IsZero() {
			continue
		}
		if result.Adjustments == nil {
			result.Adjustments = make(map[string]decimal.Decimal)
		}
		result.Adjustments[attr.name+":"+attr.value] = delta
		sum = sum.Add(delta)
	}
	if sum.IsZero() {
		return
	}

	if result.Method == types.MethodPerPiece {
		sum = sum.Mul(result.Quantity)
	}
	result.Total = result.Total.Add(sum)
	if result.Quantity.IsPositive() {
		result.UnitPrice = result.Total.Div(result.Quantity)
	} else {
		result.UnitPrice = result.Total
	}
}

// Rule is one flattened adjustment entry, used for listing
type Rule struct {
	Category  types.Category
	Attribute string
	Value     string
	Delta     decimal.Decimal
}

// Rules returns every entry of the table in stable sorted order
func (t *AdjustmentTable) Rules() []Rule {
	var out []Rule
	for category, byAttr := range t.rules {
		for attribute, byValue := range byAttr {
			for value, delta := range byValue {
				out = append(out, Rule{
					Category:  category,
					Attribute: attribute,
					Value:     value,
					Delta:     delta,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Attribute != out[j].Attribute {
			return out[i].Attribute < out[j].Attribute
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Len returns the number of rules in the table
func (t *AdjustmentTable) Len() int {
	n := 0
	for _, byAttr := range t.rules {
		for _, byValue := range byAttr {
			n += len(byValue)
		}
	}
	return n
}

// DefaultTable returns the built-in adjustment rules for photovoltaic
// components. A rules file extends or overwrites these entries.
func DefaultTable() *AdjustmentTable {
	t := NewAdjustmentTable()

	set := func(c types.Category, attr, value string, delta float64) {
		t.Set(c, attr, value, decimal.NewFromFloat(delta))
	}

	set(types.CategoryModule, AttrTechnology, "monocrystalline", 12)
	set(types.CategoryModule, AttrTechnology, "glass_glass", 28)
	set(types.CategoryModule, AttrTechnology, "bifacial", 35)
	set(types.CategoryModule, AttrDesign, "full_black", 9)
	set(types.CategoryModule, AttrEfficiencyTier, "high", 14)
	set(types.CategoryModule, AttrEfficiencyTier, "premium", 22)

	set(types.CategoryInverter, AttrFeatureSet, "hybrid", 180)
	set(types.CategoryInverter, AttrFeatureSet, "emergency_power", 240)
	set(types.CategoryInverter, AttrUpgrade, "smart_meter", 95)

	set(types.CategoryStorage, AttrTechnology, "lifepo4", 320)
	set(types.CategoryStorage, AttrUpgrade, "backup_box", 450)

	set(types.CategoryMounting, AttrDesign, "inroof", 85)
	set(types.CategoryMounting, AttrDesign, "facade", 120)

	set(types.CategoryCabling, AttrFeatureSet, "shielded", 1.8)

	return t
}
