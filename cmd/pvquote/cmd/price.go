// Package cmd - price command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pvquote/core/audit"
	"pvquote/core/cache"
	"pvquote/core/calc"
	"pvquote/core/catalog"
	"pvquote/core/engine"
	"pvquote/core/report"
	"pvquote/core/rules"
	"pvquote/core/types"
	"pvquote/internal/config"
	"pvquote/internal/logging"
)

var (
	outputFormat string
	rulesFile    string
	catalogFile  string
	showDetails  bool
	showStats    bool
	vatCountry   string
)

// priceCmd represents the price command
var priceCmd = &cobra.Command{
	Use:   "price <request.json>",
	Short: "Calculate the final price for a quote request",
	Long: `Run a quote request through the full pricing pipeline.

The request file holds the line items, system figures, modifications
and tax settings as JSON. Line items that reference a product id are
completed from the catalog file, if one is given.

Examples:
  pvquote price request.json
  pvquote price --catalog products.json request.json
  pvquote price --rules pricing.hcl --format json request.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (report, json)")
	priceCmd.Flags().StringVarP(&rulesFile, "rules", "r", "", "HCL rules file (adjustments, VAT tables, cache tuning)")
	priceCmd.Flags().StringVarP(&catalogFile, "catalog", "c", "", "JSON product catalog")
	priceCmd.Flags().BoolVarP(&showDetails, "details", "d", true, "show per-line quantity and unit price")
	priceCmd.Flags().BoolVar(&showStats, "stats", false, "print cache statistics after the calculation")
	priceCmd.Flags().StringVar(&vatCountry, "country", "", "VAT country code (overrides config and rules)")
}

func runPrice(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	startTime := time.Now()
	cfg := config.Get()

	request, err := readRequest(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, logging.Logger)
	if err != nil {
		return err
	}

	result, err := eng.GenerateFinalPrice(ctx, *request)
	if err != nil {
		return err
	}

	format := outputFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "report", "":
		printQuote(result, time.Since(startTime))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	if showStats || cfg.Output.ShowStats {
		printCacheStats(eng.CacheStats())
	}

	return nil
}

// readRequest decodes a quote request file
func readRequest(path string) (*types.CalculationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	var request types.CalculationRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, fmt.Errorf("parsing request file: %w", err)
	}
	if len(request.Items) == 0 {
		return nil, fmt.Errorf("request file %s contains no line items", path)
	}
	return &request, nil
}

// buildEngine assembles the pricing engine from config, the optional
// rules file and the optional catalog file
func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	ruleSet, err := loadRules(cfg, logger)
	if err != nil {
		return nil, err
	}
	for _, warning := range ruleSet.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	store, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	country := vatCountry
	if country == "" {
		country = ruleSet.Country
	}
	if country == "" {
		country = cfg.Pricing.Country
	}

	currency := ruleSet.Currency
	if currency == "" {
		currency = cfg.Pricing.DefaultCurrency
	}

	var quoteCache *cache.Cache
	if cfg.Cache.Enabled {
		cacheCfg := cfg.Cache.ToCacheConfig()
		if ruleSet.Cache != nil {
			cacheCfg = *ruleSet.Cache
		}
		quoteCache, err = cache.New(cacheCfg, logger)
		if err != nil {
			return nil, err
		}
	}

	// A typed nil *MemoryStore must not end up inside the interface.
	var catalogStore catalog.Store
	if store != nil {
		catalogStore = store
	}

	return engine.New(engine.Options{
		Catalog:         catalogStore,
		Cache:           quoteCache,
		Adjustments:     ruleSet.Adjustments,
		VAT:             ruleSet.CalculatorFor(country, logger),
		Audit:           audit.NewZapSink(logger),
		DefaultCurrency: currency,
		Logger:          logger,
	}), nil
}

// loadRules reads the rules file named by flag or config; without one
// it returns a rule set carrying only the built-in defaults
func loadRules(cfg *config.Config, logger *zap.Logger) (*rules.Rules, error) {
	path := rulesFile
	if path == "" {
		path = cfg.Pricing.RulesPath
	}
	if path == "" {
		return &rules.Rules{Adjustments: calc.DefaultTable(), VAT: map[string]rules.VATTable{}}, nil
	}
	return rules.NewLoader(logger).Load(path)
}

// loadCatalog reads the catalog flag file and validates its records
func loadCatalog() (*catalog.MemoryStore, error) {
	if catalogFile == "" {
		return nil, nil
	}
	store, err := catalog.LoadFile(catalogFile)
	if err != nil {
		return nil, err
	}
	if findings := store.Validate(catalog.DefaultValidationRules()); len(findings) > 0 {
		for _, finding := range findings {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", finding)
		}
		return nil, fmt.Errorf("catalog %s has %d invalid records", catalogFile, len(findings))
	}
	return store, nil
}

func printQuote(result *types.FinalResult, duration time.Duration) {
	fmt.Println("┌─────────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│                             QUOTE SUMMARY                               │")
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")

	for _, line := range result.Lines {
		fmt.Printf("│ %-50s %20s │\n",
			truncate(line.Item.DisplayLabel(), 50),
			report.FormatMoney(line.Result.Total, result.Currency))
		if showDetails {
			fmt.Printf("│   └─ %-66s │\n",
				fmt.Sprintf("%s x %s (%s)",
					report.FormatQuantity(line.Result.Quantity),
					report.FormatMoney(line.Result.UnitPrice, result.Currency),
					line.Result.Method))
		}
	}

	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	printTotal("Base price", result.BasePrice, result.Currency)
	if !result.TotalDiscount.IsZero() {
		printTotal("Total discount", result.TotalDiscount.Neg(), result.Currency)
	}
	if !result.TotalSurcharge.IsZero() {
		printTotal("Total surcharge", result.TotalSurcharge, result.Currency)
	}
	printTotal("NET TOTAL", result.NetTotal, result.Currency)
	fmt.Printf("│ %-50s %20s │\n",
		fmt.Sprintf("VAT (%s)", report.FormatPercent(result.EffectiveTaxRate)),
		report.FormatMoney(result.TaxAmount, result.Currency))
	printTotal("GROSS TOTAL", result.GrossTotal, result.Currency)
	fmt.Println("└─────────────────────────────────────────────────────────────────────────┘")

	if len(result.Warnings) > 0 {
		fmt.Println("")
		for _, warning := range result.Warnings {
			fmt.Printf("⚠ %s\n", warning)
		}
	}

	fmt.Printf("\nCalculated in %s (request %s)\n", duration.Round(time.Millisecond), result.RequestID)
}

func printTotal(label string, amount decimal.Decimal, currency types.Currency) {
	fmt.Printf("│ %-50s %20s │\n", label, report.FormatMoney(amount, currency))
}

func printCacheStats(stats cache.Stats) {
	fmt.Println("\nCache statistics:")
	for _, lvl := range []cache.Level{cache.LevelComponent, cache.LevelSystem, cache.LevelModification, cache.LevelFinal} {
		s := stats.Levels[lvl]
		fmt.Printf("  %-13s entries=%-4d hits=%-4d misses=%-4d hit rate %.1f%%\n",
			lvl, s.Entries, s.Hits, s.Misses, s.HitRate)
	}
	fmt.Printf("  total entries: %d\n", stats.TotalEntries)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
