package service

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/sakif/foodgram/internal/model"
)

// ShoppingListFilename is what browsers save the downloaded list as.
const ShoppingListFilename = "shopping_list.txt"

type shoppingKey struct {
	name string
	unit string
}

// AggregateShoppingList sums amounts per (name, unit) pair in one pass and
// returns the totals sorted by name, then unit. The same ingredient in two
// different units stays on two lines.
func AggregateShoppingList(items []model.ShoppingItem) []model.ShoppingItem {
	totals := make(map[shoppingKey]int, len(items))
	for _, item := range items {
		totals[shoppingKey{item.Name, item.MeasurementUnit}] += item.Amount
	}

	result := make([]model.ShoppingItem, 0, len(totals))
	for k, amount := range totals {
		result = append(result, model.ShoppingItem{
			Name:            k.name,
			MeasurementUnit: k.unit,
			Amount:          amount,
		})
	}

	slices.SortFunc(result, func(a, b model.ShoppingItem) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.MeasurementUnit, b.MeasurementUnit),
		)
	})
	return result
}

// FormatShoppingList renders one "<name> (<unit>) — <amount>" line per item.
func FormatShoppingList(items []model.ShoppingItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%s (%s) — %d", item.Name, item.MeasurementUnit, item.Amount)
	}
	return strings.Join(lines, "\n")
}
