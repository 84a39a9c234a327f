package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatPct 0.00805 -> 0.8050%
func FormatPct(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(4) + "%"
}

// FormatVolume $1.2M / $3.4k / $950
func FormatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fk", v/1_000)
	}
	return fmt.Sprintf("$%.0f", v)
}

// FormatThreshold 5000 -> $5,000
func FormatThreshold(v float64) string {
	return "$" + humanize.Comma(int64(v))
}

// ShortPair BTC/USDT:USDT -> BTC/USDT
func ShortPair(pair string) string {
	return strings.Replace(pair, "/USDT:USDT", "/USDT", 1)
}

func asymMark(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}
