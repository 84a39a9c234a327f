package binance

import (
	"context"
	"fmt"
	"strconv"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://fapi.binance.com"

// Gateway Binance USDT-M 永续公共行情
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.Binance, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
	}
}

func (g *Gateway) Name() string { return exchange.Binance }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type exchangeInfoResp struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		Status       string `json:"status"`
		BaseAsset    string `json:"baseAsset"`
		QuoteAsset   string `json:"quoteAsset"`
		MarginAsset  string `json:"marginAsset"`
	} `json:"symbols"`
}

type fundingInfoResp struct {
	Symbol               string `json:"symbol"`
	FundingIntervalHours int    `json:"fundingIntervalHours"`
}

type premiumIndexResp struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type fundingRateResp struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	var info exchangeInfoResp
	if err := g.rest.GetJSON(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}

	// 仅非默认周期的合约出现在 fundingInfo 中
	intervals := map[string]int{}
	var fi []fundingInfoResp
	if err := g.rest.GetJSON(ctx, "/fapi/v1/fundingInfo", nil, &fi); err != nil {
		log.Debug().Str("exchange", exchange.Binance).Err(err).Msg("funding info unavailable")
	}
	for _, f := range fi {
		intervals[f.Symbol] = f.FundingIntervalHours
	}

	out := make([]model.Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.QuoteAsset != "USDT" {
			continue
		}
		m := model.Market{
			Symbol:       exchange.UnifiedSymbol(s.BaseAsset, s.QuoteAsset, s.MarginAsset),
			ID:           s.Symbol,
			Base:         s.BaseAsset,
			Quote:        s.QuoteAsset,
			Settle:       s.MarginAsset,
			Swap:         s.ContractType == "PERPETUAL",
			Linear:       s.MarginAsset == s.QuoteAsset,
			Active:       s.Status == "TRADING",
			ContractSize: 1,
		}
		if h, ok := intervals[s.Symbol]; ok && h > 0 {
			m.Info.FundingInterval = strconv.Itoa(h)
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *Gateway) Market(symbol string) (model.Market, error) {
	return g.markets.Market(symbol)
}

func (g *Gateway) FetchFundingRates(ctx context.Context, symbols []string) (map[string]model.FundingRate, error) {
	if _, err := g.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	var items []premiumIndexResp
	if err := g.rest.GetJSON(ctx, "/fapi/v1/premiumIndex", nil, &items); err != nil {
		return nil, err
	}

	out := make(map[string]model.FundingRate, len(items))
	for _, it := range items {
		sym, ok := g.markets.SymbolOf(it.Symbol)
		if !ok {
			continue
		}
		r, err := toFundingRate(sym, it)
		if err != nil {
			continue
		}
		out[sym] = r
	}
	return exchange.Filter(out, symbols), nil
}

func (g *Gateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return model.FundingRate{}, err
	}
	var it premiumIndexResp
	if err := g.rest.GetJSON(ctx, "/fapi/v1/premiumIndex", map[string]string{"symbol": id}, &it); err != nil {
		return model.FundingRate{}, err
	}
	return toFundingRate(symbol, it)
}

func toFundingRate(symbol string, it premiumIndexResp) (model.FundingRate, error) {
	rate, err := exchange.ParseFloat(it.LastFundingRate)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("binance funding rate %s: %w", it.Symbol, err)
	}
	return model.FundingRate{Symbol: symbol, FundingRate: rate, NextFundingTime: it.NextFundingTime}, nil
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var rows [][]any
	params := map[string]string{"symbol": id, "interval": timeframe, "limit": strconv.Itoa(limit)}
	if err := g.rest.GetJSON(ctx, "/fapi/v1/klines", params, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, err := exchange.AnyFloat(row[0])
		if err != nil {
			continue
		}
		var vals [5]float64
		ok := true
		for i := range vals {
			if vals[i], err = exchange.AnyFloat(row[i+1]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, model.Candle{
			Timestamp: int64(ts),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return out, nil
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var items []fundingRateResp
	params := map[string]string{"symbol": id, "limit": strconv.Itoa(limit)}
	if err := g.rest.GetJSON(ctx, "/fapi/v1/fundingRate", params, &items); err != nil {
		return nil, err
	}

	out := make([]model.FundingHistoryEntry, 0, len(items))
	for _, it := range items {
		rate, err := exchange.ParseFloat(it.FundingRate)
		if err != nil {
			continue
		}
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: rate, Timestamp: it.FundingTime})
	}
	return out, nil
}
