// Package vat implements the tax calculator: category based rates per
// country, explicit-rate and mixed calculations, and gross-to-net.
package vat

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// builtinRates are the shipped per-country tables. A rules file
// extends or overwrites them.
var builtinRates = map[string]map[types.VATCategory]decimal.Decimal{
	"DE": {
		types.VATStandard: decimal.NewFromInt(19),
		types.VATReduced:  decimal.NewFromInt(7),
		types.VATZero:     decimal.Zero,
		types.VATExempt:   decimal.Zero,
	},
	"AT": {
		types.VATStandard: decimal.NewFromInt(20),
		types.VATReduced:  decimal.NewFromInt(10),
		types.VATZero:     decimal.Zero,
		types.VATExempt:   decimal.Zero,
	},
	"CH": {
		types.VATStandard: decimal.NewFromFloat(8.1),
		types.VATReduced:  decimal.NewFromFloat(2.6),
		types.VATZero:     decimal.Zero,
		types.VATExempt:   decimal.Zero,
	},
}

// DefaultCountry is used when a calculator is built for a country
// without a built-in table.
const DefaultCountry = "DE"

// Calculation is the result of one tax computation
type Calculation struct {
	// Net is the taxed net amount
	Net decimal.Decimal `json:"net"`

	// Rate is the applied or effective percentage
	Rate decimal.Decimal `json:"rate"`

	// Tax is the tax amount
	Tax decimal.Decimal `json:"tax"`

	// Gross is Net plus Tax
	Gross decimal.Decimal `json:"gross"`

	// Category is the input category; empty for explicit-rate and
	// mixed calculations
	Category types.VATCategory `json:"category,omitempty"`

	// Breakdown holds the per-category portions of a mixed calculation
	Breakdown []Portion `json:"breakdown,omitempty"`
}

// Portion is one category's share of a mixed calculation
type Portion struct {
	Category types.VATCategory `json:"category"`
	Rate     decimal.Decimal   `json:"rate"`
	Net      decimal.Decimal   `json:"net"`
	Tax      decimal.Decimal   `json:"tax"`
	Gross    decimal.Decimal   `json:"gross"`
}

// Item is one categorized net amount fed into CalculateMixed
type Item struct {
	Net      decimal.Decimal   `json:"net"`
	Category types.VATCategory `json:"category,omitempty"`
}

// Calculator maps net amounts to gross amounts using per-category
// rates. A missing or unknown category never fails a computation; it
// is logged and falls back to the standard rate.
type Calculator struct {
	country string
	rates   map[types.VATCategory]decimal.Decimal
	aliases map[types.VATCategory]types.VATCategory
	logger  *zap.Logger
}

// NewCalculator creates a calculator for the given country. Countries
// without a built-in table fall back to the DefaultCountry rates.
func NewCalculator(country string, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = DefaultCountry
	}
	table, ok := builtinRates[country]
	if !ok {
		logger.Warn("no built-in vat table for country, using default rates",
			zap.String("country", country),
			zap.String("default", DefaultCountry))
		table = builtinRates[DefaultCountry]
	}

	rates := make(map[types.VATCategory]decimal.Decimal, len(table))
	for category, rate := range table {
		rates[category] = rate
	}
	return &Calculator{
		country: country,
		rates:   rates,
		aliases: make(map[types.VATCategory]types.VATCategory),
		logger:  logger,
	}
}

// Country returns the country the calculator was built for
func (c *Calculator) Country() string {
	return c.country
}

// SetRate overwrites one category's percentage
func (c *Calculator) SetRate(category types.VATCategory, rate decimal.Decimal) {
	c.rates[category] = rate
}

// SetAlias maps a custom category name onto one of the canonical
// categories. A malformed target is fixed up to standard and logged,
// never an error.
func (c *Calculator) SetAlias(alias, target types.VATCategory) {
	if _, ok := c.rates[target]; !ok {
		c.logger.Warn("vat category alias points at unknown category, using standard",
			zap.String("alias", string(alias)),
			zap.String("target", string(target)))
		target = types.VATStandard
	}
	c.aliases[alias] = target
}

// RateFor returns the percentage for a category. Unknown categories
// resolve to the standard rate with a logged warning.
func (c *Calculator) RateFor(category types.VATCategory) decimal.Decimal {
	if category == "" {
		category = types.VATStandard
	}
	if rate, ok := c.rates[category]; ok {
		return rate
	}
	if target, ok := c.aliases[category]; ok {
		return c.rates[target]
	}
	c.logger.Warn("unknown vat category, using standard rate",
		zap.String("category", string(category)),
		zap.String("country", c.country))
	return c.rates[types.VATStandard]
}

// Calculate computes tax for a net amount under one category
func (c *Calculator) Calculate(net decimal.Decimal, category types.VATCategory) (*Calculation, error) {
	if net.IsNegative() {
		return nil, errors.Validation("net amount must not be negative").
			WithContext("field", "net").
			WithContext("value", net.String())
	}
	if category == "" {
		category = types.VATStandard
	}
	rate := c.RateFor(category)
	tax := taxFor(net, rate)
	return &Calculation{
		Net:      net,
		Rate:     rate,
		Tax:      tax,
		Gross:    net.Add(tax),
		Category: category,
	}, nil
}

// CalculateRate computes tax for a net amount under an explicit rate
func (c *Calculator) CalculateRate(net, rate decimal.Decimal) (*Calculation, error) {
	if net.IsNegative() {
		return nil, errors.Validation("net amount must not be negative").
			WithContext("field", "net").
			WithContext("value", net.String())
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	tax := taxFor(net, rate)
	return &Calculation{
		Net:   net,
		Rate:  rate,
		Tax:   tax,
		Gross: net.Add(tax),
	}, nil
}

// CalculateMixed computes tax per item and sums the results. Inputs
// spanning a single category short-circuit to Calculate and carry no
// breakdown; genuinely mixed inputs carry one Portion per category and
// an effective rate of tax/net*100.
func (c *Calculator) CalculateMixed(items []Item) (*Calculation, error) {
	if len(items) == 0 {
		return &Calculation{}, nil
	}

	single := true
	first := normalizeCategory(items[0].Category)
	for _, item := range items[1:] {
		if normalizeCategory(item.Category) != first {
			single = false
			break
		}
	}
	if single {
		total := decimal.Zero
		for _, item := range items {
			if item.Net.IsNegative() {
				return nil, errors.Validation("net amount must not be negative").
					WithContext("field", "net").
					WithContext("value", item.Net.String())
			}
			total = total.Add(item.Net)
		}
		return c.Calculate(total, first)
	}

	result := &Calculation{}
	index := make(map[types.VATCategory]int)
	for _, item := range items {
		if item.Net.IsNegative() {
			return nil, errors.Validation("net amount must not be negative").
				WithContext("field", "net").
				WithContext("value", item.Net.String())
		}
		category := normalizeCategory(item.Category)
		rate := c.RateFor(category)
		tax := taxFor(item.Net, rate)

		i, ok := index[category]
		if !ok {
			i = len(result.Breakdown)
			index[category] = i
			result.Breakdown = append(result.Breakdown, Portion{Category: category, Rate: rate})
		}
		portion := &result.Breakdown[i]
		portion.Net = portion.Net.Add(item.Net)
		portion.Tax = portion.Tax.Add(tax)
		portion.Gross = portion.Net.Add(portion.Tax)

		result.Net = result.Net.Add(item.Net)
		result.Tax = result.Tax.Add(tax)
	}
	result.Gross = result.Net.Add(result.Tax)
	if result.Net.IsPositive() {
		result.Rate = result.Tax.Div(result.Net).Mul(hundred).Round(2)
	}
	return result, nil
}

// NetFromGross splits a gross amount into net and tax under a rate
func (c *Calculator) NetFromGross(gross, rate decimal.Decimal) (*Calculation, error) {
	if gross.IsNegative() {
		return nil, errors.Validation("gross amount must not be negative").
			WithContext("field", "gross").
			WithContext("value", gross.String())
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	net := gross.Div(one.Add(rate.Div(hundred))).Round(2)
	return &Calculation{
		Net:   net,
		Rate:  rate,
		Tax:   gross.Sub(net),
		Gross: gross,
	}, nil
}

// taxFor computes the rounded tax amount for one net portion
func taxFor(net, rate decimal.Decimal) decimal.Decimal {
	return net.Mul(rate).Div(hundred).Round(2)
}

// validateRate checks an explicit percentage
func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return errors.Validation("rate must be between 0 and 100").
			WithContext("field", "rate").
			WithContext("value", rate.String())
	}
	return nil
}

// normalizeCategory defaults an empty category to standard
func normalizeCategory(category types.VATCategory) types.VATCategory {
	if category == "" {
		return types.VATStandard
	}
	return category
}
