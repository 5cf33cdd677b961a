// Package rules - cty value conversion
// Rules files carry only literal values, so every expression must
// evaluate without an eval context and unknown values are rejected.
package rules

import (
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"
)

// ctyString extracts a known string value
func ctyString(val cty.Value) (string, bool) {
	if !val.IsKnown() || val.IsNull() || val.Type() != cty.String {
		return "", false
	}
	return val.AsString(), true
}

// ctyNumber extracts a known number as a decimal. The big float is
// rendered with the minimal digits that round-trip it, so decimal
// literals survive the conversion unchanged.
func ctyNumber(val cty.Value) (decimal.Decimal, bool) {
	if !val.IsKnown() || val.IsNull() || val.Type() != cty.Number {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(val.AsBigFloat().Text('f', -1))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ctyInt extracts a known whole number
func ctyInt(val cty.Value) (int, bool) {
	d, ok := ctyNumber(val)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ctyPair is one entry of an object or map value
type ctyPair struct {
	Key   string
	Value cty.Value
}

// ctyPairs iterates an object or map value into key/value pairs.
// Iteration order follows cty's element order, which is sorted by key.
func ctyPairs(val cty.Value) ([]ctyPair, bool) {
	if !val.IsKnown() || val.IsNull() {
		return nil, false
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, false
	}
	if !val.CanIterateElements() {
		return nil, false
	}

	pairs := make([]ctyPair, 0, val.LengthInt())
	iter := val.ElementIterator()
	for iter.Next() {
		k, v := iter.Element()
		pairs = append(pairs, ctyPair{Key: k.AsString(), Value: v})
	}
	return pairs, true
}
