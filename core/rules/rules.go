// Package rules loads pricing rule files: adjustment deltas, VAT
// tables, and cache tuning in HCL. A rules file is optional; every
// section falls back to the built-in defaults when absent.
package rules

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pvquote/core/cache"
	"pvquote/core/calc"
	"pvquote/core/types"
	"pvquote/core/vat"
	"pvquote/internal/errors"
)

// VATTable holds the decoded rates and category aliases of one country
type VATTable struct {
	// Rates maps canonical categories to percentages
	Rates map[types.VATCategory]decimal.Decimal

	// Aliases maps custom category names to canonical ones
	Aliases map[types.VATCategory]types.VATCategory
}

// Rules is a decoded rules file
type Rules struct {
	// Currency is the quoting currency, empty if the file does not set one
	Currency types.Currency

	// Country is the default VAT country, empty if the file does not set one
	Country string

	// Adjustments is the feature adjustment table. Starts from the
	// built-in defaults; file entries overwrite matching cells.
	Adjustments *calc.AdjustmentTable

	// VAT maps country codes to their decoded tables
	VAT map[string]VATTable

	// Cache is the cache tuning, nil if the file has no cache block
	Cache *cache.Config

	// Warnings lists the lenient fix-ups applied while decoding
	Warnings []string
}

// CalculatorFor builds a VAT calculator for the given country and
// applies the file's rates and aliases for it, if any.
func (r *Rules) CalculatorFor(country string, logger *zap.Logger) *vat.Calculator {
	calculator := vat.NewCalculator(country, logger)
	table, ok := r.VAT[calculator.Country()]
	if !ok {
		return calculator
	}
	for category, rate := range table.Rates {
		calculator.SetRate(category, rate)
	}
	for alias, target := range table.Aliases {
		calculator.SetAlias(alias, target)
	}
	return calculator
}

var rootSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "currency"},
		{Name: "country"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "adjustment", LabelNames: []string{"category", "attribute"}},
		{Type: "vat", LabelNames: []string{"country"}},
		{Type: "cache"},
	},
}

var adjustmentSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "deltas", Required: true},
	},
}

var vatSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "standard"},
		{Name: "reduced"},
		{Name: "zero"},
		{Name: "exempt"},
		{Name: "categories"},
	},
}

var cacheSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "strategy"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "level", LabelNames: []string{"name"}},
	},
}

var levelSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "ttl_seconds"},
		{Name: "capacity"},
	},
}

// Loader parses rules files
type Loader struct {
	parser *hclparse.Parser
	logger *zap.Logger
}

// NewLoader creates a rules loader
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		parser: hclparse.NewParser(),
		logger: logger,
	}
}

// Load reads and parses the rules file at path
func (l *Loader) Load(path string) (*Rules, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("cannot read rules file %s", path), err)
	}
	return l.Parse(src, path)
}

// Parse decodes a rules file from source. Structural problems (syntax
// errors, unknown blocks, out-of-range percentages) fail with a
// CONFIG_ERROR; unknown VAT category targets are fixed up to standard
// with a warning instead.
func (l *Loader) Parse(src []byte, filename string) (*Rules, error) {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	rules := &Rules{
		Adjustments: calc.DefaultTable(),
		VAT:         make(map[string]VATTable),
	}

	if attr, ok := content.Attributes["currency"]; ok {
		value, err := attrString(attr)
		if err != nil {
			return nil, err
		}
		currency := types.Currency(value)
		if !currency.IsValid() {
			return nil, errors.Config(fmt.Sprintf("unsupported currency %q in %s", value, filename), nil)
		}
		rules.Currency = currency
	}

	if attr, ok := content.Attributes["country"]; ok {
		value, err := attrString(attr)
		if err != nil {
			return nil, err
		}
		rules.Country = value
	}

	for _, block := range content.Blocks {
		var err error
		switch block.Type {
		case "adjustment":
			err = l.decodeAdjustment(rules, block)
		case "vat":
			err = l.decodeVAT(rules, block)
		case "cache":
			err = l.decodeCache(rules, block)
		}
		if err != nil {
			return nil, err
		}
	}

	return rules, nil
}

// decodeAdjustment merges one adjustment block into the table.
// Category labels are not restricted to the built-in set; custom
// categories flow through line items untouched.
func (l *Loader) decodeAdjustment(rules *Rules, block *hcl.Block) error {
	category := types.Category(block.Labels[0])
	attribute := block.Labels[1]

	content, diags := block.Body.Content(adjustmentSchema)
	if diags.HasErrors() {
		return diagError(block.DefRange.Filename, diags)
	}

	attr := content.Attributes["deltas"]
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return diagError(block.DefRange.Filename, diags)
	}

	pairs, ok := ctyPairs(val)
	if !ok {
		return errors.Config(fmt.Sprintf("adjustment %q %q: deltas must be a map of numbers", category, attribute), nil)
	}
	for _, pair := range pairs {
		delta, ok := ctyNumber(pair.Value)
		if !ok {
			return errors.Config(fmt.Sprintf("adjustment %q %q: delta for %q is not a number", category, attribute, pair.Key), nil)
		}
		rules.Adjustments.Set(category, attribute, pair.Key, delta)
	}
	return nil
}

// decodeVAT merges one vat block into the country tables
func (l *Loader) decodeVAT(rules *Rules, block *hcl.Block) error {
	country := block.Labels[0]

	content, diags := block.Body.Content(vatSchema)
	if diags.HasErrors() {
		return diagError(block.DefRange.Filename, diags)
	}

	table := VATTable{
		Rates:   make(map[types.VATCategory]decimal.Decimal),
		Aliases: make(map[types.VATCategory]types.VATCategory),
	}

	rateAttrs := []struct {
		name     string
		category types.VATCategory
	}{
		{"standard", types.VATStandard},
		{"reduced", types.VATReduced},
		{"zero", types.VATZero},
		{"exempt", types.VATExempt},
	}
	for _, ra := range rateAttrs {
		attr, ok := content.Attributes[ra.name]
		if !ok {
			continue
		}
		rate, err := attrNumber(attr)
		if err != nil {
			return err
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return errors.Config(fmt.Sprintf("vat %q: %s rate %s is outside [0, 100]", country, ra.name, rate), nil)
		}
		table.Rates[ra.category] = rate
	}

	if attr, ok := content.Attributes["categories"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diagError(block.DefRange.Filename, diags)
		}
		pairs, ok := ctyPairs(val)
		if !ok {
			return errors.Config(fmt.Sprintf("vat %q: categories must be a map of category names", country), nil)
		}
		for _, pair := range pairs {
			target, isString := ctyString(pair.Value)
			if !isString {
				target = pair.Value.GoString()
			}
			targetCategory := types.VATCategory(target)
			if !isString || !targetCategory.IsValid() {
				// Tax category mapping gaps are never fatal. The alias
				// still resolves, just to the standard rate.
				warning := fmt.Sprintf("vat %q: category %q maps to unknown target %q, using standard", country, pair.Key, target)
				l.logger.Warn("rules file fix-up", zap.String("warning", warning))
				rules.Warnings = append(rules.Warnings, warning)
				targetCategory = types.VATStandard
			}
			table.Aliases[types.VATCategory(pair.Key)] = targetCategory
		}
	}

	rules.VAT[country] = table
	return nil
}

// decodeCache decodes the cache block into a cache config
func (l *Loader) decodeCache(rules *Rules, block *hcl.Block) error {
	content, diags := block.Body.Content(cacheSchema)
	if diags.HasErrors() {
		return diagError(block.DefRange.Filename, diags)
	}

	cfg := cache.DefaultConfig()

	if attr, ok := content.Attributes["strategy"]; ok {
		value, err := attrString(attr)
		if err != nil {
			return err
		}
		strategy := cache.Strategy(value)
		if !strategy.IsValid() {
			return errors.Config(fmt.Sprintf("cache: unknown strategy %q", value), nil)
		}
		cfg.Strategy = strategy
	}

	for _, levelBlock := range content.Blocks {
		name := cache.Level(levelBlock.Labels[0])
		if !name.IsValid() {
			return errors.Config(fmt.Sprintf("cache: unknown level %q", levelBlock.Labels[0]), nil)
		}

		levelContent, diags := levelBlock.Body.Content(levelSchema)
		if diags.HasErrors() {
			return diagError(levelBlock.DefRange.Filename, diags)
		}

		levelCfg := cfg.Levels[name]
		if attr, ok := levelContent.Attributes["ttl_seconds"]; ok {
			seconds, err := attrInt(attr)
			if err != nil {
				return err
			}
			if seconds < 0 {
				return errors.Config(fmt.Sprintf("cache level %q: ttl_seconds must not be negative", name), nil)
			}
			levelCfg.TTL = time.Duration(seconds) * time.Second
		}
		if attr, ok := levelContent.Attributes["capacity"]; ok {
			capacity, err := attrInt(attr)
			if err != nil {
				return err
			}
			if capacity < 0 {
				return errors.Config(fmt.Sprintf("cache level %q: capacity must not be negative", name), nil)
			}
			levelCfg.Capacity = capacity
		}
		cfg.Levels[name] = levelCfg
	}

	rules.Cache = &cfg
	return nil
}

// attrString evaluates an attribute expecting a string literal
func attrString(attr *hcl.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diagError(attr.Range.Filename, diags)
	}
	s, ok := ctyString(val)
	if !ok {
		return "", errors.Config(fmt.Sprintf("%s: %s must be a string", attr.Range.Filename, attr.Name), nil)
	}
	return s, nil
}

// attrNumber evaluates an attribute expecting a number literal
func attrNumber(attr *hcl.Attribute) (decimal.Decimal, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return decimal.Zero, diagError(attr.Range.Filename, diags)
	}
	d, ok := ctyNumber(val)
	if !ok {
		return decimal.Zero, errors.Config(fmt.Sprintf("%s: %s must be a number", attr.Range.Filename, attr.Name), nil)
	}
	return d, nil
}

// attrInt evaluates an attribute expecting a whole number literal
func attrInt(attr *hcl.Attribute) (int, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return 0, diagError(attr.Range.Filename, diags)
	}
	n, ok := ctyInt(val)
	if !ok {
		return 0, errors.Config(fmt.Sprintf("%s: %s must be a whole number", attr.Range.Filename, attr.Name), nil)
	}
	return n, nil
}

// diagError flattens HCL diagnostics into a config error
func diagError(filename string, diags hcl.Diagnostics) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		msg := diag.Summary
		if diag.Detail != "" {
			msg = msg + ": " + diag.Detail
		}
		line := 0
		if diag.Subject != nil {
			line = diag.Subject.Start.Line
		}
		return errors.Config(fmt.Sprintf("%s:%d: %s", filename, line, msg), nil)
	}
	return errors.Config(fmt.Sprintf("%s: invalid rules file", filename), nil)
}
