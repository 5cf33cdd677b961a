// Package cmd - rules command
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"pvquote/core/cache"
	"pvquote/core/rules"
	"pvquote/core/types"
	"pvquote/internal/logging"
)

// rulesCmd validates a rules file and shows what it resolves to
var rulesCmd = &cobra.Command{
	Use:   "rules <file.hcl>",
	Short: "Validate a pricing rules file",
	Long: `Parse a pricing rules file and show the resolved adjustment table,
VAT tables and cache tuning.

Examples:
  pvquote rules pricing.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	ruleSet, err := rules.NewLoader(logging.Logger).Load(args[0])
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ %s is valid\n", args[0])

	if ruleSet.Currency != "" {
		fmt.Printf("\nCurrency: %s\n", ruleSet.Currency)
	}
	if ruleSet.Country != "" {
		fmt.Printf("Country:  %s\n", ruleSet.Country)
	}

	printAdjustments(ruleSet)
	printVATTables(ruleSet)
	printCacheTuning(ruleSet)

	if len(ruleSet.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range ruleSet.Warnings {
			fmt.Printf("  ⚠ %s\n", warning)
		}
	}

	return nil
}

func printAdjustments(ruleSet *rules.Rules) {
	entries := ruleSet.Adjustments.Rules()
	if len(entries) == 0 {
		return
	}
	fmt.Printf("\nAdjustments (%d rules):\n", len(entries))
	for _, rule := range entries {
		delta := rule.Delta.String()
		if !rule.Delta.IsNegative() {
			delta = "+" + delta
		}
		fmt.Printf("  %-10s %-16s %-16s %s\n", rule.Category, rule.Attribute, rule.Value, delta)
	}
}

func printVATTables(ruleSet *rules.Rules) {
	if len(ruleSet.VAT) == 0 {
		return
	}

	countries := make([]string, 0, len(ruleSet.VAT))
	for country := range ruleSet.VAT {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	for _, country := range countries {
		table := ruleSet.VAT[country]
		fmt.Printf("\nVAT %s:\n", country)
		for _, category := range []types.VATCategory{types.VATStandard, types.VATReduced, types.VATZero, types.VATExempt} {
			if rate, ok := table.Rates[category]; ok {
				fmt.Printf("  %-10s %s %%\n", category, rate)
			}
		}

		aliases := make([]string, 0, len(table.Aliases))
		for alias := range table.Aliases {
			aliases = append(aliases, string(alias))
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			fmt.Printf("  %-10s -> %s\n", alias, table.Aliases[types.VATCategory(alias)])
		}
	}
}

func printCacheTuning(ruleSet *rules.Rules) {
	if ruleSet.Cache == nil {
		return
	}
	fmt.Printf("\nCache: strategy %s\n", ruleSet.Cache.Strategy)
	for _, lvl := range []cache.Level{cache.LevelComponent, cache.LevelSystem, cache.LevelModification, cache.LevelFinal} {
		settings, ok := ruleSet.Cache.Levels[lvl]
		if !ok {
			continue
		}
		fmt.Printf("  %-13s ttl=%s capacity=%d\n", lvl, settings.TTL, settings.Capacity)
	}
}
