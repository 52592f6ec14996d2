package exporter

import (
	"fmt"
	"strconv"
)

// formatFloat formats a metric value for CSV output with 4 decimal places.
// Ratios and percentages both need more precision than prices do.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatPercent renders a fractional value as a percentage string.
func formatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
