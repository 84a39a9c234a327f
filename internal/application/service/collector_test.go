package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

var fixedNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func TestCollectBulk(t *testing.T) {
	gw := &fakeGateway{
		name:    "binance",
		caps:    allCaps(),
		markets: map[string]model.Market{"BTC/USDT:USDT": swapMarket("BTC/USDT:USDT")},
		rates: map[string]model.FundingRate{
			"BTC/USDT:USDT": {Symbol: "BTC/USDT:USDT", FundingRate: 0.0001, NextFundingTime: 1700000000000},
			"ETH/USDT:USDT": {Symbol: "ETH/USDT:USDT", FundingRate: -0.0002},
		},
	}
	sc := NewScanContext("run", fixedNow, []port.Gateway{gw})
	c := NewRateCollector(CollectorOptions{Now: func() time.Time { return fixedNow }})

	quotes := c.Collect(context.Background(), sc)
	require.Len(t, quotes, 2)
	assert.Equal(t, 1, gw.bulkCalls)
	assert.Zero(t, gw.singleCalls)
	for _, q := range quotes {
		assert.Equal(t, "binance", q.Exchange)
		assert.Equal(t, fixedNow, q.ObservedAt)
	}
	assert.Empty(t, sc.Skipped())
}

func TestCollectSingularUnderCeiling(t *testing.T) {
	markets := map[string]model.Market{}
	rates := map[string]model.FundingRate{}
	for i := 0; i < 5; i++ {
		sym := fmt.Sprintf("C%d/USDT:USDT", i)
		markets[sym] = swapMarket(sym)
		if i != 2 {
			rates[sym] = model.FundingRate{Symbol: sym, FundingRate: 0.001}
		}
	}
	spot := swapMarket("SPOT/USDT")
	spot.Swap = false
	markets["SPOT/USDT"] = spot

	gw := &fakeGateway{
		name:    "okx",
		caps:    model.Capabilities{FundingRate: true, OHLCV: true},
		markets: markets,
		rates:   rates,
	}
	sc := NewScanContext("run", fixedNow, []port.Gateway{gw})
	c := NewRateCollector(CollectorOptions{SingularCeiling: 20})

	quotes := c.Collect(context.Background(), sc)
	assert.Len(t, quotes, 4)
	assert.Equal(t, 5, gw.singleCalls)
	assert.Empty(t, sc.Skipped())
}

func TestCollectSkipsOverCeiling(t *testing.T) {
	markets := map[string]model.Market{}
	for i := 0; i < 21; i++ {
		sym := fmt.Sprintf("C%d/USDT:USDT", i)
		markets[sym] = swapMarket(sym)
	}
	gw := &fakeGateway{name: "okx", caps: model.Capabilities{FundingRate: true}, markets: markets}
	sc := NewScanContext("run", fixedNow, []port.Gateway{gw})

	quotes := NewRateCollector(CollectorOptions{}).Collect(context.Background(), sc)
	assert.Empty(t, quotes)
	assert.Zero(t, gw.singleCalls)
	assert.Equal(t, []string{"okx (21 symbols)"}, sc.Skipped())
}

func TestCollectForceSingular(t *testing.T) {
	gw := &fakeGateway{
		name:    "gateio",
		caps:    allCaps(),
		markets: map[string]model.Market{"BTC/USDT:USDT": swapMarket("BTC/USDT:USDT")},
		rates:   map[string]model.FundingRate{"BTC/USDT:USDT": {FundingRate: 0.0003}},
	}
	sc := NewScanContext("run", fixedNow, []port.Gateway{gw})
	c := NewRateCollector(CollectorOptions{ForceSingular: map[string]bool{"gateio": true}})

	quotes := c.Collect(context.Background(), sc)
	require.Len(t, quotes, 1)
	assert.Zero(t, gw.bulkCalls)
	assert.Equal(t, 1, gw.singleCalls)
}

func TestCollectIsolatesExchangeFailures(t *testing.T) {
	good := &fakeGateway{
		name:    "bybit",
		caps:    allCaps(),
		markets: map[string]model.Market{},
		rates:   map[string]model.FundingRate{"BTC/USDT:USDT": {FundingRate: 0.0001}},
	}
	badLoad := &fakeGateway{name: "mexc", caps: allCaps(), loadErr: errors.New("timeout")}
	badBulk := &fakeGateway{name: "bitget", caps: allCaps(), markets: map[string]model.Market{}, bulkErr: errors.New("502")}

	sc := NewScanContext("run", fixedNow, []port.Gateway{good, badLoad, badBulk})
	quotes := NewRateCollector(CollectorOptions{}).Collect(context.Background(), sc)
	require.Len(t, quotes, 1)
	assert.Equal(t, "bybit", quotes[0].Exchange)
	assert.Equal(t, "BTC/USDT:USDT", quotes[0].Symbol)
}

func TestCollectNoGateways(t *testing.T) {
	sc := NewScanContext("run", fixedNow, nil)
	assert.Empty(t, NewRateCollector(CollectorOptions{}).Collect(context.Background(), sc))
}

func TestCollectExplicitSymbolsIgnoreCeiling(t *testing.T) {
	markets := map[string]model.Market{}
	rates := map[string]model.FundingRate{}
	for i := 0; i < 30; i++ {
		sym := fmt.Sprintf("C%d/USDT:USDT", i)
		markets[sym] = swapMarket(sym)
		rates[sym] = model.FundingRate{FundingRate: 0.001}
	}
	gw := &fakeGateway{name: "okx", caps: model.Capabilities{FundingRate: true}, markets: markets, rates: rates}
	sc := NewScanContext("run", fixedNow, []port.Gateway{gw})
	c := NewRateCollector(CollectorOptions{Symbols: []string{"C1/USDT:USDT", "C2/USDT:USDT", "ZZZ/USDT:USDT"}})

	quotes := c.Collect(context.Background(), sc)
	assert.Len(t, quotes, 2)
	assert.Equal(t, 2, gw.singleCalls)
	assert.Empty(t, sc.Skipped())
}
