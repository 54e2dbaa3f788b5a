// Package report renders break-even and leaderboard results as text tables,
// CSV and PDF.
package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatEGP renders an amount with digit grouping and two decimals,
// e.g. 4,471,830.99.
func FormatEGP(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatPercent renders a 0-100 score with one decimal.
func FormatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}
