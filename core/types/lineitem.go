// Package types - line items and calculation context
package types

import "github.com/shopspring/decimal"

// LineItem is one priced component of a quote. It is owned by the
// caller and read-only to the engine; the catalog fills in blanks
// before resolution, and fields set here win over catalog values.
type LineItem struct {
	// ID uniquely identifies this line within the request
	ID string `json:"id,omitempty"`

	// ProductID references the catalog product backing this line
	ProductID string `json:"product_id"`

	// Label is a human-readable label used in reports
	Label string `json:"label,omitempty"`

	// Category classifies the component
	Category Category `json:"category,omitempty"`

	// Quantity is the ordered quantity (never negative)
	Quantity decimal.Decimal `json:"quantity"`

	// UnitNetPrice is the net price per unit
	UnitNetPrice decimal.Decimal `json:"unit_net_price"`

	// Method is the calculation-method tag
	Method Method `json:"method,omitempty"`

	// CapacityKW is this line's own installed capacity per unit, in kW
	CapacityKW decimal.Decimal `json:"capacity_kw,omitempty"`

	// PowerKW is the nominal power rating per unit, in kW
	PowerKW decimal.Decimal `json:"power_kw,omitempty"`

	// LengthM is the length per unit, in meters
	LengthM decimal.Decimal `json:"length_m,omitempty"`

	// WidthM is the width per unit, in meters
	WidthM decimal.Decimal `json:"width_m,omitempty"`

	// AreaM2 is an explicit area for this line, in square meters
	AreaM2 decimal.Decimal `json:"area_m2,omitempty"`

	// LaborHours is the labor duration for this line, in hours
	LaborHours decimal.Decimal `json:"labor_hours,omitempty"`

	// Technology, FeatureSet, Design, Upgrade and EfficiencyTier are
	// the feature attributes consulted by the adjustment rules
	Technology     string `json:"technology,omitempty"`
	FeatureSet     string `json:"feature_set,omitempty"`
	Design         string `json:"design,omitempty"`
	Upgrade        string `json:"upgrade,omitempty"`
	EfficiencyTier string `json:"efficiency_tier,omitempty"`

	// VATCategory overrides the product's tax category when set
	VATCategory VATCategory `json:"vat_category,omitempty"`
}

// DisplayLabel returns the label, falling back to the product id
func (l LineItem) DisplayLabel() string {
	if l.Label != "" {
		return l.Label
	}
	return l.ProductID
}

// SystemFigures carries the system-wide totals consulted when a line's
// own attributes cannot resolve a method input.
type SystemFigures struct {
	// SystemType names the installation variant (e.g. "rooftop", "carport")
	SystemType string `json:"system_type,omitempty"`

	// TotalCapacityKW is the installed system capacity in kWp
	TotalCapacityKW decimal.Decimal `json:"total_capacity_kw,omitempty"`

	// InstallationAreaM2 is the total installation area in square meters
	InstallationAreaM2 decimal.Decimal `json:"installation_area_m2,omitempty"`

	// TotalLaborHours is the planned labor effort in hours
	TotalLaborHours decimal.Decimal `json:"total_labor_hours,omitempty"`
}

// CalcContext is the per-line calculation input: the line's technical
// attributes merged with the system-wide figures. Immutable once built
// and used only for the duration of one calculation.
type CalcContext struct {
	CapacityKW decimal.Decimal `json:"capacity_kw,omitempty"`
	PowerKW    decimal.Decimal `json:"power_kw,omitempty"`
	LengthM    decimal.Decimal `json:"length_m,omitempty"`
	WidthM     decimal.Decimal `json:"width_m,omitempty"`
	AreaM2     decimal.Decimal `json:"area_m2,omitempty"`
	LaborHours decimal.Decimal `json:"labor_hours,omitempty"`

	// System holds the figures shared by every line of the request
	System SystemFigures `json:"system,omitempty"`
}

// NewCalcContext builds the calculation context for one line item
func NewCalcContext(item LineItem, figures SystemFigures) CalcContext {
	return CalcContext{
		CapacityKW: item.CapacityKW,
		PowerKW:    item.PowerKW,
		LengthM:    item.LengthM,
		WidthM:     item.WidthM,
		AreaM2:     item.AreaM2,
		LaborHours: item.LaborHours,
		System:     figures,
	}
}
