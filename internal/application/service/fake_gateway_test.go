package service

import (
	"context"
	"errors"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type fakeGateway struct {
	name    string
	caps    model.Capabilities
	markets map[string]model.Market
	rates   map[string]model.FundingRate
	candles map[string][]model.Candle
	history map[string][]model.FundingHistoryEntry

	loadErr error
	bulkErr error

	mu           sync.Mutex
	singleCalls  int
	bulkCalls    int
	historyCalls int
}

var _ port.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) Name() string                     { return f.name }
func (f *fakeGateway) Capabilities() model.Capabilities { return f.caps }

func (f *fakeGateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.markets, nil
}

func (f *fakeGateway) Market(symbol string) (model.Market, error) {
	m, ok := f.markets[symbol]
	if !ok {
		return model.Market{}, port.ErrUnknownSymbol
	}
	return m, nil
}

func (f *fakeGateway) FetchFundingRates(ctx context.Context, symbols []string) (map[string]model.FundingRate, error) {
	f.mu.Lock()
	f.bulkCalls++
	f.mu.Unlock()
	if !f.caps.FundingRates {
		return nil, port.ErrNotSupported
	}
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	return f.rates, nil
}

func (f *fakeGateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	f.mu.Lock()
	f.singleCalls++
	f.mu.Unlock()
	if !f.caps.FundingRate {
		return model.FundingRate{}, port.ErrNotSupported
	}
	r, ok := f.rates[symbol]
	if !ok {
		return model.FundingRate{}, errors.New("no rate")
	}
	return r, nil
}

func (f *fakeGateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if !f.caps.OHLCV {
		return nil, port.ErrNotSupported
	}
	c, ok := f.candles[symbol]
	if !ok {
		return nil, errors.New("no candles")
	}
	return c, nil
}

func (f *fakeGateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if !f.caps.FundingRateHistory {
		return nil, port.ErrNotSupported
	}
	return f.history[symbol], nil
}

func allCaps() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

func swapMarket(symbol string) model.Market {
	return model.Market{Symbol: symbol, Swap: true, Linear: true, Active: true, Quote: "USDT", Settle: "USDT"}
}

func flatCandles(close, volume float64, n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{Timestamp: int64(i) * 60_000, Close: close, Volume: volume}
	}
	return out
}
