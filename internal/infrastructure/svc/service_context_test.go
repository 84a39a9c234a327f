package svc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Scan.CSVPath = filepath.Join(dir, "advanced_opportunities.csv")
	cfg.History.Path = filepath.Join(dir, "scan_history.md")
	cfg.SQLite.Path = filepath.Join(dir, "data", "fundarb.db")
	return cfg
}

func TestBuildScanServiceDepsWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLite.Enabled = true

	sc := New(context.Background(), cfg)
	defer sc.Close()

	deps, err := sc.BuildScanServiceDeps()
	require.NoError(t, err)

	assert.Len(t, deps.Gateways, 6)
	assert.Empty(t, deps.Unsupported)
	assert.NotNil(t, sc.GetSQLiteRepo())
	assert.NotNil(t, deps.Repo)
	assert.Equal(t, "UTC-5", deps.Detector.Location().String())
	assert.Equal(t, cfg.Scan.CSVPath, deps.CSVPath)
}

func TestBuildScanServiceDepsUnknownExchangeOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exchanges = map[string]config.ExchangeConfig{"kraken": {}}

	sc := New(context.Background(), cfg)
	defer sc.Close()

	_, err := sc.BuildScanServiceDeps()
	assert.ErrorIs(t, err, ErrNoGateways)
}

func TestBuildHistoryServiceDeps(t *testing.T) {
	cfg := testConfig(t)
	sc := New(context.Background(), cfg)

	deps := sc.BuildHistoryServiceDeps()
	assert.Equal(t, cfg.History.Path, deps.Log.Path())
	assert.Equal(t, 5000.0, deps.Log.MinVolume())
	assert.Equal(t, []int{7, 11, 15, 19, 23}, deps.TargetHours)
}
