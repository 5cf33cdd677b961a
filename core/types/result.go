// Package types - calculation and pricing results
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationResult is the outcome of resolving one line item. It is
// produced once per line per calculation and not mutated afterwards.
type CalculationResult struct {
	// BasePrice is the unit net price the resolution started from
	BasePrice decimal.Decimal `json:"base_price"`

	// Quantity is the quantity the resolution started from
	Quantity decimal.Decimal `json:"quantity"`

	// UnitPrice is the effective price per quantity unit
	UnitPrice decimal.Decimal `json:"unit_price"`

	// Total is the line total including adjustments
	Total decimal.Decimal `json:"total"`

	// Factor is the multiplier the method applied to the base price:
	// quantity for per-piece, resolved capacity for per-kwp, 1 for lump sum
	Factor decimal.Decimal `json:"factor"`

	// Method is the method actually applied after fallbacks
	Method Method `json:"method"`

	// Adjustments maps adjustment labels to the delta each contributed
	Adjustments map[string]decimal.Decimal `json:"adjustments,omitempty"`

	// Notes carries human-readable warnings (fallbacks, ignored quantities)
	Notes []string `json:"notes,omitempty"`
}

// ResolvedLine pairs a line item with its calculation result
type ResolvedLine struct {
	// Item is the line item after catalog defaults were filled in
	Item LineItem `json:"item"`

	// Result is the resolved calculation
	Result CalculationResult `json:"result"`
}

// PricingResult is the outcome of resolving a set of line items
type PricingResult struct {
	// Lines are the per-item resolutions, in input order
	Lines []ResolvedLine `json:"lines"`

	// BasePrice is the sum of all line totals
	BasePrice decimal.Decimal `json:"base_price"`

	// Warnings aggregates the notes of all lines
	Warnings []string `json:"warnings,omitempty"`
}

// ModificationConfig describes the discounts and surcharges applied on
// top of the assembled system total. Percentages apply before fixed
// amounts; that ordering is part of the contract.
type ModificationConfig struct {
	// DiscountPercent is subtracted proportionally (0-100)
	DiscountPercent decimal.Decimal `json:"discount_percent,omitempty"`

	// SurchargePercent is added proportionally (0-100)
	SurchargePercent decimal.Decimal `json:"surcharge_percent,omitempty"`

	// FixedDiscount is subtracted after the percentage steps
	FixedDiscount decimal.Decimal `json:"fixed_discount,omitempty"`

	// FixedSurcharge is added after the percentage steps
	FixedSurcharge decimal.Decimal `json:"fixed_surcharge,omitempty"`

	// ExtraCosts is a flat amount added before the percentage steps
	ExtraCosts decimal.Decimal `json:"extra_costs,omitempty"`
}

// IsZero reports whether the configuration changes nothing
func (m ModificationConfig) IsZero() bool {
	return m.DiscountPercent.IsZero() &&
		m.SurchargePercent.IsZero() &&
		m.FixedDiscount.IsZero() &&
		m.FixedSurcharge.IsZero() &&
		m.ExtraCosts.IsZero()
}

// ModifiedPrice is the outcome of applying a ModificationConfig
type ModifiedPrice struct {
	// BasePrice is the price before modification
	BasePrice decimal.Decimal `json:"base_price"`

	// FinalPrice is the price after all steps, clamped at zero
	FinalPrice decimal.Decimal `json:"final_price"`

	// TotalDiscount is the absolute amount removed (percentage + fixed)
	TotalDiscount decimal.Decimal `json:"total_discount"`

	// TotalSurcharge is the absolute amount added (percentage + fixed)
	TotalSurcharge decimal.Decimal `json:"total_surcharge"`

	// ExtraCosts echoes the flat extras included before percentages
	ExtraCosts decimal.Decimal `json:"extra_costs"`
}

// TaxConfig describes how tax is computed for a request
type TaxConfig struct {
	// Mode selects single, override or mixed calculation; empty
	// defaults to single
	Mode TaxMode `json:"mode,omitempty"`

	// Country selects the rate table (ISO code, e.g. "DE")
	Country string `json:"country,omitempty"`

	// Category is the category applied in single mode
	Category VATCategory `json:"category,omitempty"`

	// OverrideRate is the explicit percentage applied in override mode
	OverrideRate decimal.Decimal `json:"override_rate,omitempty"`
}

// CalculationRequest is one complete quote calculation
type CalculationRequest struct {
	// RequestID correlates audit events; assigned when empty
	RequestID string `json:"request_id,omitempty"`

	// Items are the quoted line items
	Items []LineItem `json:"items"`

	// Figures are the system-wide figures shared by all lines
	Figures SystemFigures `json:"figures,omitempty"`

	// Modifications are the discounts and surcharges to apply
	Modifications ModificationConfig `json:"modifications,omitempty"`

	// Tax selects the tax calculation mode
	Tax TaxConfig `json:"tax,omitempty"`

	// Currency overrides the engine's default currency when set
	Currency Currency `json:"currency,omitempty"`
}

// FinalResult is the complete, tax-inclusive, report-ready output of
// one quote calculation. This is the externally consumed artifact.
type FinalResult struct {
	// RequestID echoes the request correlation id
	RequestID string `json:"request_id,omitempty"`

	// BasePrice is the system total before modifications
	BasePrice decimal.Decimal `json:"base_price"`

	// Lines are the resolved line items
	Lines []ResolvedLine `json:"lines"`

	// NetTotal is the modified net amount tax was computed on
	NetTotal decimal.Decimal `json:"net_total"`

	// TaxAmount is the total tax
	TaxAmount decimal.Decimal `json:"tax_amount"`

	// GrossTotal is NetTotal plus TaxAmount
	GrossTotal decimal.Decimal `json:"gross_total"`

	// EffectiveTaxRate is TaxAmount / NetTotal * 100
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"`

	// TotalDiscount is the absolute amount removed by modifications
	TotalDiscount decimal.Decimal `json:"total_discount"`

	// TotalSurcharge is the absolute amount added by modifications
	TotalSurcharge decimal.Decimal `json:"total_surcharge"`

	// Currency is the quote currency
	Currency Currency `json:"currency"`

	// ReportFields is the flat key to formatted-value mapping consumed
	// by downstream document generation
	ReportFields map[string]string `json:"report_fields,omitempty"`

	// Warnings carries every note produced during resolution
	Warnings []string `json:"warnings,omitempty"`

	// CalculatedAt is when the result was assembled
	CalculatedAt time.Time `json:"calculated_at"`
}
