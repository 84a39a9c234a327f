package scan

import (
	"fmt"
	"strconv"

	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/report"
)

// PreviewHeaders 控制台预览列
var PreviewHeaders = []string{
	"HORA", "PAR", "LONG_EXCH", "LONG_RATE", "LONG_INT", "SHORT_EXCH", "SHORT_RATE", "SHORT_INT",
	"VOL L", "VOL S", "SPREAD", "ASYM",
}

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Found 每个机会一行
func (f *Formatter) Found(o model.EnrichedOpportunity) string {
	asym := "No"
	if o.Asymmetric {
		asym = "Yes"
	}
	return fmt.Sprintf("Found: %s Spread: %s for %d:00 (Asym: %s)", o.Symbol, report.FormatPct(o.Spread), o.TargetHour, asym)
}

// PreviewRows 前 n 行，n <= 0 表示全部
func (f *Formatter) PreviewRows(records []report.Record, n int) [][]string {
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Hour,
			report.ShortPair(r.Pair),
			r.LongExchange,
			report.FormatPct(r.LongRate),
			hours(r.LongInterval),
			r.ShortExchange,
			report.FormatPct(r.ShortRate),
			hours(r.ShortInterval),
			report.FormatVolume(r.LongVolume),
			report.FormatVolume(r.ShortVolume),
			report.FormatPct(r.Spread),
			yesNo(r.Asymmetric),
		})
	}
	return rows
}

// SkippedBanner 跳过交易所的警告块
func (f *Formatter) SkippedBanner(skipped []string) []string {
	if len(skipped) == 0 {
		return nil
	}
	rule := "=================================================="
	lines := []string{"", rule, "WARNING: The following exchanges were SKIPPED (No bulk support):"}
	for _, s := range skipped {
		lines = append(lines, "- "+s)
	}
	return append(lines, rule)
}

func hours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "h"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
