package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
)

// FormatMoney renders an amount with two decimal places and the
// currency code, e.g. "4500.00 EUR".
func FormatMoney(amount decimal.Decimal, currency types.Currency) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
}

// FormatPercent renders a percentage with two decimal places.
func FormatPercent(rate decimal.Decimal) string {
	return rate.StringFixed(2) + " %"
}

// FormatQuantity renders a quantity with trailing zeros trimmed.
func FormatQuantity(qty decimal.Decimal) string {
	return qty.String()
}

// Build assembles the report fields for a final result. The fixed
// totals are emitted first and reserve their keys, so a line item
// labelled "Net Total" cannot shadow the NET_TOTAL figure; it gets a
// numeric suffix instead. Each line contributes its total plus _QTY
// and _UNIT companions.
func Build(result *types.FinalResult) map[string]string {
	keys := NewKeySet()
	fields := make(map[string]string)

	put := func(label, value string) {
		fields[keys.Add(label)] = value
	}

	put("base price", FormatMoney(result.BasePrice, result.Currency))
	put("total discount", FormatMoney(result.TotalDiscount, result.Currency))
	put("total surcharge", FormatMoney(result.TotalSurcharge, result.Currency))
	put("net total", FormatMoney(result.NetTotal, result.Currency))
	put("tax amount", FormatMoney(result.TaxAmount, result.Currency))
	put("effective tax rate", FormatPercent(result.EffectiveTaxRate))
	put("gross total", FormatMoney(result.GrossTotal, result.Currency))
	put("currency", result.Currency.String())

	for _, line := range result.Lines {
		label := line.Item.DisplayLabel()
		fields[keys.Add(label)] = FormatMoney(line.Result.Total, result.Currency)
		fields[keys.Add(label+" qty")] = FormatQuantity(line.Result.Quantity)
		fields[keys.Add(label+" unit")] = FormatMoney(line.Result.UnitPrice, result.Currency)
	}

	if len(result.Warnings) > 0 {
		put("warnings", strings.Join(result.Warnings, "; "))
	}

	return fields
}
