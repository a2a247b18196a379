package exporter

import (
	"github.com/dustin/go-humanize"
)

// FormatCurrency formats an amount as dollars with thousands separators and
// exactly 2 decimal places, e.g. $1,234.50
func FormatCurrency(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatCount formats an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
