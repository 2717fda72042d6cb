package services

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// CurrencySuffix follows every formatted amount.
const CurrencySuffix = "ر.س"

// FormatAmount formats an amount with thousands separators, exactly two
// decimal places and the currency suffix, e.g. "1,552.50 ر.س".
func FormatAmount(amount float64) string {
	return humanize.FormatFloat("#,###.##", amount) + " " + CurrencySuffix
}

// FormatNumber formats a plain figure with thousands separators and two
// decimals.
func FormatNumber(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// FormatRate renders a fraction in [0,1] as a percentage, e.g. 0.045 -> "4.5%".
func FormatRate(rate float64) string {
	return FormatPercent(rate * 100)
}

// FormatPercent renders a value already on the 0..100 scale.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// formatQty returns a string representation of the quantity value.
// Whole numbers are formatted without decimals; fractional values get 2 decimal places.
func formatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	return fmt.Sprintf("%.2f", qty)
}
