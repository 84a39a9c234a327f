package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fundarb/internal/domain/model"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepoSaveRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 15, 40, 0, 0, time.UTC)

	run := model.ScanRun{ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Minute), Exchanges: 6, Skipped: []string{"okx (312 symbols)"}}
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run.Opportunities = 3
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun upsert failed: %v", err)
	}

	var opps int
	var skipped string
	if err := repo.GetDB().QueryRowContext(ctx, `SELECT opportunities, skipped FROM scan_runs WHERE id=?`, "run-1").Scan(&opps, &skipped); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if opps != 3 || skipped != `["okx (312 symbols)"]` {
		t.Errorf("unexpected run row: opportunities=%d skipped=%s", opps, skipped)
	}
}

func TestSQLiteRepoSaveQuotes(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	quotes := []model.FundingQuote{
		{Exchange: "binance", Symbol: "BTC/USDT:USDT", FundingRate: 0.0001, NextFundingTime: 1741622400000, ObservedAt: now},
		{Exchange: "bybit", Symbol: "BTC/USDT:USDT", FundingRate: -0.0002, ObservedAt: now},
	}
	if err := repo.SaveQuotes(ctx, "run-1", quotes); err != nil {
		t.Fatalf("SaveQuotes failed: %v", err)
	}
	n, err := repo.CountQuotes(ctx, "run-1")
	if err != nil {
		t.Fatalf("CountQuotes failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 quotes, got %d", n)
	}
}

func TestSQLiteRepoOpportunities(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	opps := []model.EnrichedOpportunity{
		{
			SpreadCandidate: model.SpreadCandidate{Symbol: "BTC/USDT:USDT", LongExchange: "bybit", LongRate: -0.006, ShortExchange: "binance", ShortRate: 0.002, Spread: 0.008, TargetHour: 11},
			LongVolume1m:    50000,
			ShortVolume1m:   70000,
			LongInterval:    8,
			ShortInterval:   4,
			LongFee:         model.Fee{Taker: 0.00055, Maker: 0.0002},
			ShortFee:        model.Fee{Taker: 0.0005, Maker: 0.0002},
			Asymmetric:      true,
		},
		{
			SpreadCandidate: model.SpreadCandidate{Symbol: "ETH/USDT:USDT", LongExchange: "okx", ShortExchange: "gateio", Spread: 0.005, TargetHour: 19},
		},
	}
	if err := repo.SaveOpportunities(ctx, "run-1", opps); err != nil {
		t.Fatalf("SaveOpportunities failed: %v", err)
	}

	got, err := repo.LatestOpportunities(ctx, 10)
	if err != nil {
		t.Fatalf("LatestOpportunities failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(got))
	}
	if got[0].Symbol != "ETH/USDT:USDT" {
		t.Errorf("expected newest first, got %s", got[0].Symbol)
	}
	btc := got[1]
	if btc.Spread != 0.008 || !btc.Asymmetric || btc.LongFee.Taker != 0.00055 || btc.ShortInterval != 4 {
		t.Errorf("unexpected opportunity: %+v", btc)
	}
}
