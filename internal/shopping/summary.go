// Package shopping derives the values shown for lists and templates:
// totals, progress, sections and history buckets.
package shopping

import (
	"github.com/dukerupert/basket/internal/model"
	"github.com/shopspring/decimal"
)

// Summarize counts items and checked items and sums line prices. Prices are
// per line, so the total is a plain sum, rounded to cents.
func Summarize(items []model.ListItem) model.Summary {
	total := decimal.Zero
	var sum model.Summary
	for _, item := range items {
		sum.ItemCount++
		if item.IsChecked {
			sum.CheckedItemsCount++
		}
		total = total.Add(decimal.NewFromFloat(item.Price))
	}
	sum.TotalCost = Money(total)
	return sum
}

// TotalCost sums the prices of any set of lines.
func TotalCost[T model.Lineable](items []T) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.LineInfo().Price))
	}
	return Money(total)
}

// Money rounds an amount to cents.
func Money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Progress is the checked fraction of a list in [0, 1]; an empty list has
// no progress.
func Progress(s model.Summary) float64 {
	if s.ItemCount == 0 {
		return 0
	}
	return float64(s.CheckedItemsCount) / float64(s.ItemCount)
}
