package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 0.004, cfg.Scan.SpreadThreshold)
	assert.Equal(t, []int{7, 11, 15, 19, 23}, cfg.Scan.TargetHours)
	assert.Equal(t, -5, *cfg.Scan.UTCOffsetHours)
	assert.Equal(t, 20, cfg.Scan.SingularCeiling)
	assert.Equal(t, 15, cfg.Scan.RequestTimeoutSec)
	assert.Equal(t, 500.0, cfg.Scan.PositionSize)
	assert.Equal(t, 10, cfg.Scan.Leverage)
	assert.Equal(t, "advanced_opportunities.csv", cfg.Scan.CSVPath)
	assert.Equal(t, 5000.0, cfg.History.MinVolume)
	assert.Equal(t, 3, cfg.History.TopN)
	assert.ElementsMatch(t, DefaultExchanges, cfg.GetEnabledExchanges())
}

func TestLoadExchangesAndOffset(t *testing.T) {
	path := writeConfig(t, `
[scan]
utc_offset_hours = 0
target_hours = [19, 11, 11]
symbols = [" btc/usdt:usdt ", "BTC/USDT:USDT"]

[exchanges.binance]
force_singular = true

[exchanges.okx]
enabled = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, *cfg.Scan.UTCOffsetHours)
	assert.Equal(t, []int{11, 19}, cfg.Scan.TargetHours)
	assert.Equal(t, []string{"BTC/USDT:USDT"}, cfg.Scan.Symbols)
	assert.Equal(t, []string{"binance"}, cfg.GetEnabledExchanges())
	assert.Equal(t, map[string]bool{"binance": true}, cfg.ForceSingular())
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"hour":     "[scan]\ntarget_hours = [24]\n",
		"offset":   "[scan]\nutc_offset_hours = 20\n",
		"none":     "[exchanges.binance]\nenabled = false\n",
		"postgres": "[postgres]\nenabled = true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("FUNDARB_POSTGRES_DSN", "")
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FUNDARB_WEBHOOK", "https://hooks.example/abc")
	t.Setenv("FUNDARB_POSTGRES_DSN", "postgres://u:p@localhost/db")

	cfg, err := Load(writeConfig(t, "[postgres]\nenabled = true\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example/abc", cfg.Notify.WebhookURL)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Postgres.DSN)
}
