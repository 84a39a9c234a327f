package report

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"
)

const (
	DefaultHistoryMinVolume = 5000.0
	DefaultHistoryTopN      = 3

	historyHeader    = "| Hora | # | Par | Spread | Long Exchange | Rate Long | Short Exchange | Rate Short | Vol L | Vol S | Asim |"
	historySeparator = "|------|---|-----|--------|---------------|-----------|----------------|------------|-------|-------|------|"
)

// HistoryLog 追加式 Markdown 扫描记录
type HistoryLog struct {
	path      string
	minVolume float64
	topN      int
}

func NewHistoryLog(path string, minVolume float64, topN int) *HistoryLog {
	if minVolume <= 0 {
		minVolume = DefaultHistoryMinVolume
	}
	if topN <= 0 {
		topN = DefaultHistoryTopN
	}
	return &HistoryLog{path: path, minVolume: minVolume, topN: topN}
}

func (h *HistoryLog) Path() string       { return h.path }
func (h *HistoryLog) MinVolume() float64 { return h.minVolume }

// SelectTop 双边成交量过滤、按价差降序、按 (合约, 多, 空) 去重后取前 N
func SelectTop(records []Record, minVolume float64, topN int) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.LongVolume >= minVolume && r.ShortVolume >= minVolume {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b Record) int {
		return cmp.Compare(b.Spread, a.Spread)
	})

	type key struct{ pair, long, short string }
	seen := make(map[key]struct{}, len(kept))
	out := make([]Record, 0, topN)
	for _, r := range kept {
		k := key{r.Pair, r.LongExchange, r.ShortExchange}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
		if len(out) == topN {
			break
		}
	}
	return out
}

// Append 追加本次结果，当天标题只写一次。返回写入的排名行。
func (h *HistoryLog) Append(records []Record, now time.Time, targetLabel string) ([]Record, error) {
	top := SelectTop(records, h.minVolume, h.topN)

	existing, err := os.ReadFile(h.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", h.path, err)
	}
	date := now.Format("2006-01-02")
	heading := "## 📅 " + date

	var sb strings.Builder
	if !strings.Contains(string(existing), heading) {
		sb.WriteString("\n" + heading + "\n\n")
		sb.WriteString(historyHeader + "\n")
		sb.WriteString(historySeparator + "\n")
	}
	for _, line := range h.rows(top, targetLabel) {
		sb.WriteString(line + "\n")
	}

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", h.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(sb.String()); err != nil {
		return nil, fmt.Errorf("append %s: %w", h.path, err)
	}
	return top, nil
}

func (h *HistoryLog) rows(top []Record, label string) []string {
	if len(top) == 0 {
		return []string{fmt.Sprintf("| %s | — | *Sin oportunidades con Vol ≥ %s* | — | — | — | — | — | — | — | — |",
			label, FormatThreshold(h.minVolume))}
	}
	out := make([]string, 0, len(top))
	for i, r := range top {
		out = append(out, fmt.Sprintf("| %s | %d | **%s** | %s | %s | %s | %s | %s | %s | %s | %s |",
			label, i+1, ShortPair(r.Pair),
			FormatPct(r.Spread),
			r.LongExchange, FormatPct(r.LongRate),
			r.ShortExchange, FormatPct(r.ShortRate),
			FormatVolume(r.LongVolume), FormatVolume(r.ShortVolume),
			asymMark(r.Asymmetric)))
	}
	return out
}
