// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyCHF Currency = "CHF"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// IsValid checks if the currency is supported
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyCHF:
		return true
	}
	return false
}

// Category classifies a quoted component
type Category string

const (
	CategoryModule   Category = "module"
	CategoryInverter Category = "inverter"
	CategoryStorage  Category = "storage"
	CategoryMounting Category = "mounting"
	CategoryCabling  Category = "cabling"
	CategoryLabor    Category = "labor"
	CategoryService  Category = "service"
	CategoryGeneric  Category = "generic"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Method identifies how unit price and quantity combine into a line total
type Method string

const (
	// MethodPerPiece multiplies the unit price by the quantity
	MethodPerPiece Method = "per_piece"

	// MethodPerMeter multiplies the unit price by a length in meters
	MethodPerMeter Method = "per_meter"

	// MethodLumpSum charges the unit price once regardless of quantity
	MethodLumpSum Method = "lump_sum"

	// MethodPerKWP multiplies the unit price by installed capacity in kWp
	MethodPerKWP Method = "per_kwp"

	// MethodPerSqm multiplies the unit price by an area in square meters
	MethodPerSqm Method = "per_sqm"

	// MethodPerHour multiplies the unit price by a duration in hours
	MethodPerHour Method = "per_hour"
)

// String returns the string representation of the method
func (m Method) String() string {
	return string(m)
}

// IsValid checks if the method is a known method tag
func (m Method) IsValid() bool {
	switch m {
	case MethodPerPiece, MethodPerMeter, MethodLumpSum, MethodPerKWP, MethodPerSqm, MethodPerHour:
		return true
	default:
		return false
	}
}

// VATCategory selects which tax rate applies to a net amount
type VATCategory string

const (
	VATStandard VATCategory = "standard"
	VATReduced  VATCategory = "reduced"
	VATZero     VATCategory = "zero"
	VATExempt   VATCategory = "exempt"
)

// String returns the string representation of the VAT category
func (v VATCategory) String() string {
	return string(v)
}

// IsValid checks if the VAT category is known
func (v VATCategory) IsValid() bool {
	switch v {
	case VATStandard, VATReduced, VATZero, VATExempt:
		return true
	default:
		return false
	}
}

// TaxMode selects how tax is computed for a request
type TaxMode string

const (
	// TaxModeSingle applies one category's rate across the whole net amount
	TaxModeSingle TaxMode = "single"

	// TaxModeOverride applies an explicit rate across the whole net amount
	TaxModeOverride TaxMode = "override"

	// TaxModeMixed taxes each line by its own category
	TaxModeMixed TaxMode = "mixed"
)

// String returns the string representation of the tax mode
func (m TaxMode) String() string {
	return string(m)
}
