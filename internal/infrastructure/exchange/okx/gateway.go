package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"
)

const defaultBaseURL = "https://www.okx.com"

// Gateway OKX v5 永续公共行情。资金费率只能按合约单独查询。
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.OKX, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
	}
}

func (g *Gateway) Name() string { return exchange.OKX }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: false, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type instrument struct {
	InstID    string `json:"instId"`
	InstType  string `json:"instType"`
	CtType    string `json:"ctType"`
	CtVal     string `json:"ctVal"`
	SettleCcy string `json:"settleCcy"`
	Uly       string `json:"uly"`
	State     string `json:"state"`
}

type fundingRate struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	FundingTime     string `json:"fundingTime"`     // 本期结算时间
	NextFundingTime string `json:"nextFundingTime"` // 下一期结算时间
}

type fundingHistory struct {
	InstID      string `json:"instId"`
	FundingRate string `json:"fundingRate"`
	FundingTime string `json:"fundingTime"`
}

func (g *Gateway) get(ctx context.Context, path string, params map[string]string, out any) error {
	var env envelope
	if err := g.rest.GetJSON(ctx, path, params, &env); err != nil {
		return err
	}
	if env.Code != "0" {
		return fmt.Errorf("okx api error: %s %s", env.Code, env.Msg)
	}
	return exchange.ParseJSON(env.Data, out)
}

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	var items []instrument
	if err := g.get(ctx, "/api/v5/public/instruments", map[string]string{"instType": "SWAP"}, &items); err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(items))
	for _, it := range items {
		base, quote, ok := strings.Cut(it.Uly, "-")
		if !ok || quote != "USDT" {
			continue
		}
		size, err := exchange.ParseFloat(it.CtVal)
		if err != nil {
			size = 1
		}
		out = append(out, model.Market{
			Symbol:       exchange.UnifiedSymbol(base, quote, it.SettleCcy),
			ID:           it.InstID,
			Base:         base,
			Quote:        quote,
			Settle:       it.SettleCcy,
			Swap:         true,
			Linear:       it.CtType == "linear",
			Active:       it.State == "live",
			ContractSize: size,
		})
	}
	return out, nil
}

func (g *Gateway) Market(symbol string) (model.Market, error) {
	return g.markets.Market(symbol)
}

func (g *Gateway) FetchFundingRates(ctx context.Context, symbols []string) (map[string]model.FundingRate, error) {
	return nil, fmt.Errorf("okx bulk funding rates: %w", port.ErrNotSupported)
}

func (g *Gateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return model.FundingRate{}, err
	}
	var items []fundingRate
	if err := g.get(ctx, "/api/v5/public/funding-rate", map[string]string{"instId": id}, &items); err != nil {
		return model.FundingRate{}, err
	}
	if len(items) == 0 {
		return model.FundingRate{}, fmt.Errorf("okx funding rate %s: empty", id)
	}
	rate, err := exchange.ParseFloat(items[0].FundingRate)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("okx funding rate %s: %w", id, err)
	}
	// fundingTime 是当前费率对应的结算时刻
	return model.FundingRate{Symbol: symbol, FundingRate: rate, NextFundingTime: exchange.ParseInt(items[0].FundingTime)}, nil
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	bar, err := barOf(timeframe)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	params := map[string]string{"instId": id, "bar": bar, "limit": strconv.Itoa(limit)}
	if err := g.get(ctx, "/api/v5/market/candles", params, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		// [ts, o, h, l, c, vol(张), volCcy(币), volCcyQuote, confirm]
		if len(row) < 7 {
			continue
		}
		var vals [4]float64
		ok := true
		for i := range vals {
			v, err := exchange.ParseFloat(row[i+1])
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		volCcy, err := exchange.ParseFloat(row[6])
		if !ok || err != nil {
			continue
		}
		out = append(out, model.Candle{
			Timestamp: exchange.ParseInt(row[0]),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    volCcy,
		})
	}
	slices.Reverse(out)
	return out, nil
}

func barOf(timeframe string) (string, error) {
	switch timeframe {
	case "1m", "5m", "15m":
		return timeframe, nil
	case "1h":
		return "1H", nil
	case "1d":
		return "1D", nil
	}
	return "", fmt.Errorf("okx timeframe %q: %w", timeframe, port.ErrNotSupported)
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var items []fundingHistory
	params := map[string]string{"instId": id, "limit": strconv.Itoa(limit)}
	if err := g.get(ctx, "/api/v5/public/funding-rate-history", params, &items); err != nil {
		return nil, err
	}
	out := make([]model.FundingHistoryEntry, 0, len(items))
	for _, it := range items {
		rate, err := exchange.ParseFloat(it.FundingRate)
		if err != nil {
			continue
		}
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: rate, Timestamp: exchange.ParseInt(it.FundingTime)})
	}
	slices.Reverse(out)
	return out, nil
}
