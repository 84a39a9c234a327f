package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://api.bitget.com"
	productType    = "USDT-FUTURES"
	successCode    = "00000"
)

// Gateway Bitget v2 mix USDT 永续公共行情
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.Bitget, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
	}
}

func (g *Gateway) Name() string { return exchange.Bitget }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type contract struct {
	Symbol         string `json:"symbol"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	MakerFeeRate   string `json:"makerFeeRate"`
	TakerFeeRate   string `json:"takerFeeRate"`
	SymbolType     string `json:"symbolType"`
	SymbolStatus   string `json:"symbolStatus"`
	FundInterval   string `json:"fundInterval"` // 小时
	SizeMultiplier string `json:"sizeMultiplier"`
}

type currentFundRate struct {
	Symbol              string `json:"symbol"`
	FundingRate         string `json:"fundingRate"`
	FundingRateInterval string `json:"fundingRateInterval"`
	NextUpdate          string `json:"nextUpdate"`
}

type historyFundRate struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime string `json:"fundingTime"`
}

func (g *Gateway) get(ctx context.Context, path string, params map[string]string, out any) error {
	var env envelope
	if err := g.rest.GetJSON(ctx, path, params, &env); err != nil {
		return err
	}
	if env.Code != successCode {
		return fmt.Errorf("bitget api error: %s %s", env.Code, env.Msg)
	}
	return exchange.ParseJSON(env.Data, out)
}

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	var items []contract
	if err := g.get(ctx, "/api/v2/mix/market/contracts", map[string]string{"productType": productType}, &items); err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(items))
	for _, it := range items {
		if it.QuoteCoin != "USDT" {
			continue
		}
		size, err := exchange.ParseFloat(it.SizeMultiplier)
		if err != nil || size <= 0 {
			size = 1
		}
		out = append(out, model.Market{
			Symbol:       exchange.UnifiedSymbol(it.BaseCoin, it.QuoteCoin, it.QuoteCoin),
			ID:           it.Symbol,
			Base:         it.BaseCoin,
			Quote:        it.QuoteCoin,
			Settle:       it.QuoteCoin,
			Swap:         it.SymbolType == "perpetual",
			Linear:       true,
			Active:       it.SymbolStatus == "normal",
			ContractSize: size,
			Taker:        exchange.FloatPtr(it.TakerFeeRate),
			Maker:        exchange.FloatPtr(it.MakerFeeRate),
			Info:         model.MarketInfo{FundingInterval: it.FundInterval},
		})
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
	var items []currentFundRate
	if err := g.get(ctx, "/api/v2/mix/market/current-fund-rate", map[string]string{"productType": productType}, &items); err != nil {
		return nil, err
	}
	out := make(map[string]model.FundingRate, len(items))
	for _, it := range items {
		sym, ok := g.markets.SymbolOf(it.Symbol)
		if !ok {
			continue
		}
		rate, err := exchange.ParseFloat(it.FundingRate)
		if err != nil {
			continue
		}
		out[sym] = model.FundingRate{Symbol: sym, FundingRate: rate, NextFundingTime: exchange.ParseInt(it.NextUpdate)}
	}
	return exchange.Filter(out, symbols), nil
}

func (g *Gateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return model.FundingRate{}, err
	}
	var items []currentFundRate
	params := map[string]string{"productType": productType, "symbol": id}
	if err := g.get(ctx, "/api/v2/mix/market/current-fund-rate", params, &items); err != nil {
		return model.FundingRate{}, err
	}
	if len(items) == 0 {
		return model.FundingRate{}, fmt.Errorf("bitget funding rate %s: empty", id)
	}
	rate, err := exchange.ParseFloat(items[0].FundingRate)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("bitget funding rate %s: %w", id, err)
	}
	return model.FundingRate{Symbol: symbol, FundingRate: rate, NextFundingTime: exchange.ParseInt(items[0].NextUpdate)}, nil
}

func granularityOf(timeframe string) (string, error) {
	switch timeframe {
	case "1m", "5m", "15m":
		return timeframe, nil
	case "1h":
		return "1H", nil
	case "1d":
		return "1D", nil
	}
	return "", fmt.Errorf("bitget timeframe %q: %w", timeframe, port.ErrNotSupported)
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	gran, err := granularityOf(timeframe)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	params := map[string]string{"symbol": id, "productType": productType, "granularity": gran, "limit": strconv.Itoa(limit)}
	if err := g.get(ctx, "/api/v2/mix/market/candles", params, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		// [ts, open, high, low, close, baseVolume, quoteVolume]
		if len(row) < 6 {
			continue
		}
		var vals [5]float64
		ok := true
		for i := range vals {
			v, err := exchange.ParseFloat(row[i+1])
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		out = append(out, model.Candle{
			Timestamp: exchange.ParseInt(row[0]),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	slices.SortFunc(out, func(a, b model.Candle) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return out, nil
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var items []historyFundRate
	params := map[string]string{"symbol": id, "productType": productType, "pageSize": strconv.Itoa(limit)}
	if err := g.get(ctx, "/api/v2/mix/market/history-fund-rate", params, &items); err != nil {
		return nil, err
	}
	out := make([]model.FundingHistoryEntry, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		rate, err := exchange.ParseFloat(items[i].FundingRate)
		if err != nil {
			continue
		}
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: rate, Timestamp: exchange.ParseInt(items[i].FundingTime)})
	}
	return out, nil
}
