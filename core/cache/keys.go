// Package cache - deterministic cache key construction.
// Keys pair a plain-text tag (for the pattern-scan path) with a blake3
// digest of the canonical input tuple (for collision-free lookups).
package cache

import (
	"encoding/hex"
	"sort"

	"lukechampine.com/blake3"

	"pvquote/core/types"
)

// digestLen is the digest length in bytes (16 hex characters)
const digestLen = 8

// digest hashes the canonical parts into a short hex string
func digest(parts ...string) string {
	h := blake3.New(digestLen, nil)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ComponentKey builds the component-level key for one line item. The
// product id rides along in plain text so bulk invalidation can target
// every entry of one product by substring.
func ComponentKey(item types.LineItem, figures types.SystemFigures) string {
	return "component:" + item.ProductID + ":" + digest(
		"component",
		item.ProductID,
		string(item.Category),
		string(item.Method),
		item.Quantity.String(),
		item.UnitNetPrice.String(),
		item.CapacityKW.String(),
		item.PowerKW.String(),
		item.LengthM.String(),
		item.WidthM.String(),
		item.AreaM2.String(),
		item.LaborHours.String(),
		item.Technology,
		item.FeatureSet,
		item.Design,
		item.Upgrade,
		item.EfficiencyTier,
		string(item.VATCategory),
		figures.SystemType,
		figures.TotalCapacityKW.String(),
		figures.InstallationAreaM2.String(),
		figures.TotalLaborHours.String(),
	)
}

// SystemKey builds the system-level key over the full component set.
// Component keys are sorted first so logically identical requests
// collide regardless of line ordering.
func SystemKey(systemType string, componentKeys []string) string {
	sorted := append([]string(nil), componentKeys...)
	sort.Strings(sorted)
	parts := append([]string{"system", systemType}, sorted...)
	return "system:" + systemType + ":" + digest(parts...)
}

// ModificationKey builds the modification-level key
func ModificationKey(systemKey string, mods types.ModificationConfig) string {
	return "mod:" + digest(
		"mod",
		systemKey,
		mods.DiscountPercent.String(),
		mods.SurchargePercent.String(),
		mods.FixedDiscount.String(),
		mods.FixedSurcharge.String(),
		mods.ExtraCosts.String(),
	)
}

// FinalKey builds the final-level key over the system key plus the
// modification, tax and currency parameters
func FinalKey(systemKey string, mods types.ModificationConfig, tax types.TaxConfig, currency types.Currency) string {
	return "final:" + digest(
		"final",
		systemKey,
		mods.DiscountPercent.String(),
		mods.SurchargePercent.String(),
		mods.FixedDiscount.String(),
		mods.FixedSurcharge.String(),
		mods.ExtraCosts.String(),
		string(tax.Mode),
		tax.Country,
		string(tax.Category),
		tax.OverrideRate.String(),
		string(currency),
	)
}
