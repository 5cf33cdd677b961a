// Package engine orchestrates quote calculations: line item
// resolution, system assembly, modifications, tax, and the final
// report-ready result. Every stage consults its cache level before
// recomputing and writes back afterwards; caching is an optimization,
// never a correctness dependency.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pvquote/core/audit"
	"pvquote/core/cache"
	"pvquote/core/calc"
	"pvquote/core/catalog"
	"pvquote/core/report"
	"pvquote/core/types"
	"pvquote/core/vat"
	"pvquote/internal/errors"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Options configures an engine
type Options struct {
	// Catalog resolves product ids to records; nil means every line
	// item must be self-contained
	Catalog catalog.Store

	// Cache holds intermediate results; nil disables caching
	Cache *cache.Cache

	// Adjustments is the feature adjustment table; nil applies none
	Adjustments *calc.AdjustmentTable

	// VAT computes taxes; nil uses the built-in table for the
	// default country
	VAT *vat.Calculator

	// Audit receives engine events; nil discards them
	Audit audit.Sink

	// DefaultCurrency is used when a request does not set one
	DefaultCurrency types.Currency

	// Logger receives structured engine logs; nil disables logging
	Logger *zap.Logger
}

// Engine computes quotes. Safe for concurrent use: the engine itself
// is stateless between calls and the cache serializes its own access.
type Engine struct {
	catalog     catalog.Store
	cache       *cache.Cache
	adjustments *calc.AdjustmentTable
	vat         *vat.Calculator
	audit       audit.Sink
	currency    types.Currency
	logger      *zap.Logger
}

// New creates an engine
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calculator := opts.VAT
	if calculator == nil {
		calculator = vat.NewCalculator(vat.DefaultCountry, logger)
	}
	adjustments := opts.Adjustments
	if adjustments == nil {
		adjustments = calc.NewAdjustmentTable()
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.NopSink{}
	}
	currency := opts.DefaultCurrency
	if currency == "" {
		currency = types.CurrencyEUR
	}
	return &Engine{
		catalog:     opts.Catalog,
		cache:       opts.Cache,
		adjustments: adjustments,
		vat:         calculator,
		audit:       sink,
		currency:    currency,
		logger:      logger,
	}
}

// ResolvePrice resolves every line item against the catalog and the
// adjustment table and sums the totals. The request fails atomically:
// either every item validates or no result is produced.
func (e *Engine) ResolvePrice(ctx context.Context, items []types.LineItem, figures types.SystemFigures) (*types.PricingResult, error) {
	merged, err := e.validateItems(ctx, "", items)
	if err != nil {
		return nil, err
	}
	lines, base, warnings, err := e.resolveLines("", merged, figures)
	if err != nil {
		return nil, err
	}
	return &types.PricingResult{
		Lines:     lines,
		BasePrice: base,
		Warnings:  warnings,
	}, nil
}

// GenerateFinalPrice runs the full pipeline for one request and
// produces the report-ready final result.
func (e *Engine) GenerateFinalPrice(ctx context.Context, request types.CalculationRequest) (*types.FinalResult, error) {
	requestID := request.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	currency := request.Currency
	if currency == "" {
		currency = e.currency
	}

	// Validation gate: the whole request fails before any cache write.
	if err := validateModifications(request.Modifications); err != nil {
		e.auditValidationFailed(requestID, err)
		return nil, err
	}
	if err := validateTax(request.Tax); err != nil {
		e.auditValidationFailed(requestID, err)
		return nil, err
	}
	merged, err := e.validateItems(ctx, requestID, request.Items)
	if err != nil {
		return nil, err
	}

	componentKeys := make([]string, 0, len(merged))
	for _, item := range merged {
		componentKeys = append(componentKeys, cache.ComponentKey(item, request.Figures))
	}
	systemKey := cache.SystemKey(request.Figures.SystemType, componentKeys)
	finalKey := cache.FinalKey(systemKey, request.Modifications, request.Tax, currency)

	if value, ok := e.cacheGet(cache.LevelFinal, finalKey); ok {
		if cached, ok := value.(*types.FinalResult); ok {
			result := *cached
			result.RequestID = requestID
			result.CalculatedAt = time.Now().UTC()
			e.auditCompleted(requestID, &result, true)
			return &result, nil
		}
	}

	// Stage 1: resolve components.
	lines, base, warnings, err := e.resolveLines(requestID, merged, request.Figures)
	if err != nil {
		return nil, err
	}

	// Stage 2: assemble the system total with the component keys as
	// its cache dependencies.
	basePrice := base
	if value, ok := e.cacheGet(cache.LevelSystem, systemKey); ok {
		if cached, ok := value.(decimal.Decimal); ok {
			basePrice = cached
		}
	} else {
		e.cachePut(cache.LevelSystem, systemKey, basePrice, componentKeys...)
	}

	// Stage 3: apply modifications.
	modKey := cache.ModificationKey(systemKey, request.Modifications)
	var modified *types.ModifiedPrice
	if value, ok := e.cacheGet(cache.LevelModification, modKey); ok {
		if cached, ok := value.(*types.ModifiedPrice); ok {
			modified = cached
		}
	}
	if modified == nil {
		modified, err = ApplyModifications(basePrice, request.Modifications)
		if err != nil {
			return nil, err
		}
		e.cachePut(cache.LevelModification, modKey, modified, systemKey)
	}

	// Stage 4: compute tax on the modified net amount.
	taxCalc, err := e.computeTax(request.Tax, modified.FinalPrice, basePrice, lines)
	if err != nil {
		return nil, err
	}

	// Stage 5: assemble and cache the final result. The system key is
	// its dependency, so invalidating the system expires it too.
	result := &types.FinalResult{
		RequestID:        requestID,
		BasePrice:        basePrice,
		Lines:            lines,
		NetTotal:         taxCalc.Net,
		TaxAmount:        taxCalc.Tax,
		GrossTotal:       taxCalc.Gross,
		EffectiveTaxRate: taxCalc.Rate,
		TotalDiscount:    modified.TotalDiscount,
		TotalSurcharge:   modified.TotalSurcharge,
		Currency:         currency,
		Warnings:         warnings,
		CalculatedAt:     time.Now().UTC(),
	}
	result.ReportFields = report.Build(result)

	e.cachePut(cache.LevelFinal, finalKey, result, systemKey)
	e.auditCompleted(requestID, result, false)
	return result, nil
}

// InvalidateProduct removes every component entry referencing the
// product and cascades into the system, modification, and final
// entries built on them. Returns the number of entries removed.
func (e *Engine) InvalidateProduct(productID string) int {
	if e.cache == nil || productID == "" {
		return 0
	}
	count := 0
	for _, key := range e.cache.KeysMatching(":"+productID+":", cache.LevelComponent) {
		count += e.cache.Invalidate(key, true)
	}
	e.audit.Record(audit.NewEvent(audit.KindCacheInvalidated, "", map[string]interface{}{
		"scope":      "product",
		"product_id": productID,
		"count":      count,
	}))
	e.logger.Info("invalidated product entries",
		zap.String("product_id", productID),
		zap.Int("count", count))
	return count
}

// InvalidateSystem removes the system entries of one system type and
// every modification and final entry built on them.
func (e *Engine) InvalidateSystem(systemType string) int {
	if e.cache == nil || systemType == "" {
		return 0
	}
	count := 0
	for _, key := range e.cache.KeysMatching("system:"+systemType+":", cache.LevelSystem) {
		count += e.cache.Invalidate(key, true)
	}
	e.audit.Record(audit.NewEvent(audit.KindCacheInvalidated, "", map[string]interface{}{
		"scope":       "system",
		"system_type": systemType,
		"count":       count,
	}))
	e.logger.Info("invalidated system entries",
		zap.String("system_type", systemType),
		zap.Int("count", count))
	return count
}

// ClearAll empties every cache level
func (e *Engine) ClearAll() int {
	if e.cache == nil {
		return 0
	}
	count := e.cache.Clear("")
	e.audit.Record(audit.NewEvent(audit.KindCacheInvalidated, "", map[string]interface{}{
		"scope": "all",
		"count": count,
	}))
	return count
}

// CacheStats returns the per-level cache counters
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

// validateItems merges catalog records into the items and validates
// the merged result. The first invalid item aborts the whole set.
func (e *Engine) validateItems(ctx context.Context, requestID string, items []types.LineItem) ([]types.LineItem, error) {
	merged := make([]types.LineItem, 0, len(items))
	for i, item := range items {
		if e.catalog != nil && item.ProductID != "" {
			product, err := e.catalog.Lookup(ctx, item.ProductID)
			if err != nil {
				e.audit.Record(audit.NewEvent(audit.KindValidationFailed, requestID, map[string]interface{}{
					"line":       i,
					"product_id": item.ProductID,
					"reason":     err.Error(),
				}))
				return nil, err
			}
			item = catalog.Merge(item, product)
		}
		if err := validateItem(i, item); err != nil {
			e.audit.Record(audit.NewEvent(audit.KindValidationFailed, requestID, map[string]interface{}{
				"line":       i,
				"product_id": item.ProductID,
				"reason":     err.Error(),
			}))
			return nil, err
		}
		merged = append(merged, item)
	}
	return merged, nil
}

// validateItem checks the structural constraints of one line
func validateItem(index int, item types.LineItem) error {
	if item.Quantity.IsNegative() {
		return errors.Validation("quantity must not be negative").
			WithContext("line", index).
			WithContext("product_id", item.ProductID).
			WithContext("value", item.Quantity.String())
	}
	if item.UnitNetPrice.IsNegative() {
		return errors.Validation("unit price must not be negative").
			WithContext("line", index).
			WithContext("product_id", item.ProductID).
			WithContext("value", item.UnitNetPrice.String())
	}
	if item.Method == "" {
		return errors.Validation("calculation method must not be empty").
			WithContext("line", index).
			WithContext("product_id", item.ProductID)
	}
	return nil
}

// resolveLines prices each item, consulting the component cache. The
// items must already have passed the validation gate, so a resolver
// error here is an internal failure.
func (e *Engine) resolveLines(requestID string, items []types.LineItem, figures types.SystemFigures) ([]types.ResolvedLine, decimal.Decimal, []string, error) {
	lines := make([]types.ResolvedLine, 0, len(items))
	base := decimal.Zero
	var warnings []string

	for _, item := range items {
		key := cache.ComponentKey(item, figures)

		var result *types.CalculationResult
		if value, ok := e.cacheGet(cache.LevelComponent, key); ok {
			if cached, ok := value.(*types.CalculationResult); ok {
				result = cached
			}
		}
		if result == nil {
			resolved, err := calc.Resolve(item.UnitNetPrice, item.Quantity, item.Method, types.NewCalcContext(item, figures))
			if err != nil {
				return nil, decimal.Zero, nil, errors.Calculation(
					fmt.Sprintf("resolving line %s failed", item.DisplayLabel()), err)
			}
			e.adjustments.Apply(resolved, item)
			if resolved.Method != item.Method {
				e.audit.Record(audit.NewEvent(audit.KindMethodFallback, requestID, map[string]interface{}{
					"product_id": item.ProductID,
					"requested":  item.Method.String(),
					"applied":    resolved.Method.String(),
				}))
			}
			e.cachePut(cache.LevelComponent, key, resolved)
			result = resolved
		}

		lines = append(lines, types.ResolvedLine{Item: item, Result: *result})
		base = base.Add(result.Total)
		for _, note := range result.Notes {
			warnings = append(warnings, fmt.Sprintf("%s: %s", item.DisplayLabel(), note))
		}
	}
	return lines, base, warnings, nil
}

// computeTax runs stage four in the configured mode
func (e *Engine) computeTax(cfg types.TaxConfig, netTotal, basePrice decimal.Decimal, lines []types.ResolvedLine) (*vat.Calculation, error) {
	calculator := e.vat
	if cfg.Country != "" && !strings.EqualFold(cfg.Country, calculator.Country()) {
		calculator = vat.NewCalculator(cfg.Country, e.logger)
	}

	switch cfg.Mode {
	case types.TaxModeOverride:
		return calculator.CalculateRate(netTotal, cfg.OverrideRate)
	case types.TaxModeMixed:
		return e.mixedTax(calculator, netTotal, basePrice, lines)
	default:
		return calculator.Calculate(netTotal, cfg.Category)
	}
}

// mixedTax taxes the component totals per their categories and any
// modification residual at the standard rate, then recombines. A
// negative residual (net discount) can push the combined tax below
// zero; it is clamped there.
func (e *Engine) mixedTax(calculator *vat.Calculator, netTotal, basePrice decimal.Decimal, lines []types.ResolvedLine) (*vat.Calculation, error) {
	items := make([]vat.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, vat.Item{
			Net:      line.Result.Total,
			Category: line.Item.VATCategory,
		})
	}
	components, err := calculator.CalculateMixed(items)
	if err != nil {
		return nil, err
	}

	residual := netTotal.Sub(basePrice)
	if residual.IsZero() {
		return components, nil
	}

	standardRate := calculator.RateFor(types.VATStandard)
	residualTax := residual.Mul(standardRate).Div(hundred).Round(2)
	tax := components.Tax.Add(residualTax)
	if tax.IsNegative() {
		tax = decimal.Zero
	}

	result := &vat.Calculation{
		Net:      netTotal,
		Tax:      tax,
		Gross:    netTotal.Add(tax),
		Category: components.Category,
	}
	if netTotal.IsPositive() {
		result.Rate = tax.Div(netTotal).Mul(hundred).Round(2)
	}
	if len(components.Breakdown) > 0 {
		// Fold the residual into the breakdown so portions still sum
		// to the net total.
		breakdown := make([]vat.Portion, len(components.Breakdown))
		copy(breakdown, components.Breakdown)
		folded := false
		for i := range breakdown {
			if breakdown[i].Category == types.VATStandard {
				breakdown[i].Net = breakdown[i].Net.Add(residual)
				breakdown[i].Tax = breakdown[i].Tax.Add(residualTax)
				breakdown[i].Gross = breakdown[i].Net.Add(breakdown[i].Tax)
				folded = true
				break
			}
		}
		if !folded {
			breakdown = append(breakdown, vat.Portion{
				Category: types.VATStandard,
				Rate:     standardRate,
				Net:      residual,
				Tax:      residualTax,
				Gross:    residual.Add(residualTax),
			})
		}
		result.Breakdown = breakdown
	}
	return result, nil
}

// validateTax checks the request tax configuration
func validateTax(cfg types.TaxConfig) error {
	switch cfg.Mode {
	case "", types.TaxModeSingle, types.TaxModeMixed:
	case types.TaxModeOverride:
		if cfg.OverrideRate.IsNegative() || cfg.OverrideRate.GreaterThan(hundred) {
			return errors.Validation("override rate must be between 0 and 100").
				WithContext("field", "override_rate").
				WithContext("value", cfg.OverrideRate.String())
		}
	default:
		return errors.Validationf("unknown tax mode %q", cfg.Mode).
			WithContext("field", "mode")
	}
	return nil
}

func (e *Engine) cacheGet(lvl cache.Level, key string) (interface{}, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(lvl, key)
}

func (e *Engine) cachePut(lvl cache.Level, key string, value interface{}, deps ...string) {
	if e.cache == nil {
		return
	}
	e.cache.Put(lvl, key, value, deps...)
}

func (e *Engine) auditCompleted(requestID string, result *types.FinalResult, fromCache bool) {
	e.audit.Record(audit.NewEvent(audit.KindCalculationCompleted, requestID, map[string]interface{}{
		"lines":       len(result.Lines),
		"net_total":   result.NetTotal.String(),
		"gross_total": result.GrossTotal.String(),
		"from_cache":  fromCache,
	}))
	e.logger.Debug("calculation completed",
		zap.String("request_id", requestID),
		zap.String("gross_total", result.GrossTotal.String()),
		zap.Bool("from_cache", fromCache))
}

func (e *Engine) auditValidationFailed(requestID string, err error) {
	e.audit.Record(audit.NewEvent(audit.KindValidationFailed, requestID, map[string]interface{}{
		"reason": err.Error(),
	}))
}
