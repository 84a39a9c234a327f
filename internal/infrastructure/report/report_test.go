package report

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/domain/model"
)

var bogota = time.FixedZone("UTC-5", -5*3600)

func sampleOpportunity() model.EnrichedOpportunity {
	return model.EnrichedOpportunity{
		SpreadCandidate: model.SpreadCandidate{
			Symbol:          "BTC/USDT:USDT",
			LongExchange:    "exB",
			LongRate:        -0.006,
			LongNextFunding: time.Date(2025, 3, 10, 11, 0, 0, 0, bogota).UnixMilli(),
			ShortExchange:   "exA",
			ShortRate:       0.002,
			Spread:          0.008,
			TargetHour:      11,
		},
		LongVolume1m:  12345.5,
		ShortVolume1m: 9000,
		LongInterval:  8,
		ShortInterval: 4,
		LongFee:       model.Fee{Taker: 0.0005, Maker: 0.0002},
		ShortFee:      model.Fee{Taker: 0.0004, Maker: 0},
		Asymmetric:    true,
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advanced_opportunities.csv")
	meta := Meta{ScanTime: time.Date(2025, 3, 10, 15, 40, 0, 0, time.UTC), Location: bogota, PositionSize: 500, Leverage: 10}

	require.NoError(t, WriteCSV(path, []Record{NewRecord(sampleOpportunity(), meta)}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t, "2025-03-10,11:00,BTC/USDT:USDT,500,10,exB,-0.006,11:00,8,12345.5,0.0005,0.0002,exA,0.002,N/A,4,9000,0.0004,0,0.008,Yes", lines[1])

	records, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "BTC/USDT:USDT", r.Pair)
	assert.Equal(t, 0.008, r.Spread)
	assert.Equal(t, 12345.5, r.LongVolume)
	assert.True(t, r.Asymmetric)
	assert.Equal(t, "N/A", r.ShortNext)
}

func TestWriteCSVEmptyOverwritesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("FECHA,PAR\n2025-01-01,OLD/USDT:USDT\n"), 0o644))

	require.NoError(t, WriteCSV(path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Columns, ",")+"\n", string(raw))

	records, err := ReadCSV(path)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestReadCSVZeroBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadCSV(path)
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestReadCSVMissing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "0.8000%", FormatPct(0.008))
	assert.Equal(t, "-0.6000%", FormatPct(-0.006))
	assert.Equal(t, "$1.2M", FormatVolume(1_234_567))
	assert.Equal(t, "$3.4k", FormatVolume(3_400))
	assert.Equal(t, "$950", FormatVolume(950))
	assert.Equal(t, "$5,000", FormatThreshold(5000))
	assert.Equal(t, "ETH/USDT", ShortPair("ETH/USDT:USDT"))
}

func TestSelectTop(t *testing.T) {
	records := []Record{
		{Pair: "A", LongExchange: "x", ShortExchange: "y", Spread: 0.005, LongVolume: 6000, ShortVolume: 6000},
		{Pair: "A", LongExchange: "x", ShortExchange: "y", Spread: 0.009, LongVolume: 6000, ShortVolume: 6000},
		{Pair: "B", LongExchange: "x", ShortExchange: "y", Spread: 0.020, LongVolume: 4999, ShortVolume: 6000},
		{Pair: "C", LongExchange: "x", ShortExchange: "y", Spread: 0.007, LongVolume: 5000, ShortVolume: 5000},
		{Pair: "D", LongExchange: "x", ShortExchange: "y", Spread: 0.006, LongVolume: 9000, ShortVolume: 9000},
		{Pair: "E", LongExchange: "x", ShortExchange: "y", Spread: 0.0055, LongVolume: 9000, ShortVolume: 9000},
	}
	top := SelectTop(records, 5000, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"A", "C", "D"}, []string{top[0].Pair, top[1].Pair, top[2].Pair})
	assert.Equal(t, 0.009, top[0].Spread)
}

func TestHistoryAppendWritesHeadingOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_history.md")
	h := NewHistoryLog(path, 5000, 3)
	now := time.Date(2025, 3, 10, 10, 40, 0, 0, bogota)

	rec := NewRecord(sampleOpportunity(), Meta{ScanTime: now, Location: bogota, PositionSize: 500, Leverage: 10})
	top, err := h.Append([]Record{rec}, now, "11:00")
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = h.Append(nil, now.Add(4*time.Hour), "15:00")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Equal(t, 1, strings.Count(content, "## 📅 2025-03-10"))
	assert.Equal(t, 1, strings.Count(content, historyHeader))
	assert.Contains(t, content, "| 11:00 | 1 | **BTC/USDT** | 0.8000% | exB | -0.6000% | exA | 0.2000% | $12.3k | $9.0k | ✅ |\n")
	assert.Contains(t, content, "| 15:00 | — | *Sin oportunidades con Vol ≥ $5,000* | — | — | — | — | — | — | — | — |\n")
	assert.True(t, strings.HasPrefix(content, "\n## 📅 2025-03-10\n\n| Hora |"))

	_, err = h.Append(nil, now.Add(24*time.Hour), "11:00")
	require.NoError(t, err)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), historyHeader))
}
