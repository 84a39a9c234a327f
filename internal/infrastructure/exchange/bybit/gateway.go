package bybit

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
	defaultBaseURL = "https://api.bybit.com"
	category       = "linear"
	maxPages       = 10
)

// Gateway Bybit v5 USDT 线性永续公共行情
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.Bybit, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
	}
}

func (g *Gateway) Name() string { return exchange.Bybit }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type instrumentsResult struct {
	List []struct {
		Symbol          string `json:"symbol"`
		ContractType    string `json:"contractType"`
		Status          string `json:"status"`
		BaseCoin        string `json:"baseCoin"`
		QuoteCoin       string `json:"quoteCoin"`
		SettleCoin      string `json:"settleCoin"`
		FundingInterval int    `json:"fundingInterval"` // 分钟
	} `json:"list"`
	NextPageCursor string `json:"nextPageCursor"`
}

type tickersResult struct {
	List []struct {
		Symbol          string `json:"symbol"`
		FundingRate     string `json:"fundingRate"`
		NextFundingTime string `json:"nextFundingTime"`
	} `json:"list"`
}

type klineResult struct {
	List [][]string `json:"list"`
}

type historyResult struct {
	List []struct {
		Symbol               string `json:"symbol"`
		FundingRate          string `json:"fundingRate"`
		FundingRateTimestamp string `json:"fundingRateTimestamp"`
	} `json:"list"`
}

func (g *Gateway) get(ctx context.Context, path string, params map[string]string, out any) error {
	var env envelope
	if err := g.rest.GetJSON(ctx, path, params, &env); err != nil {
		return err
	}
	if env.RetCode != 0 {
		return fmt.Errorf("bybit api error: %d %s", env.RetCode, env.RetMsg)
	}
	return exchange.ParseJSON(env.Result, out)
}

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	var out []model.Market
	cursor := ""
	for page := 0; page < maxPages; page++ {
		params := map[string]string{"category": category, "limit": "1000"}
		if cursor != "" {
			params["cursor"] = cursor
		}
		var res instrumentsResult
		if err := g.get(ctx, "/v5/market/instruments-info", params, &res); err != nil {
			return nil, err
		}
		for _, s := range res.List {
			if s.QuoteCoin != "USDT" {
				continue
			}
			m := model.Market{
				Symbol:       exchange.UnifiedSymbol(s.BaseCoin, s.QuoteCoin, s.SettleCoin),
				ID:           s.Symbol,
				Base:         s.BaseCoin,
				Quote:        s.QuoteCoin,
				Settle:       s.SettleCoin,
				Swap:         s.ContractType == "LinearPerpetual",
				Linear:       s.SettleCoin == s.QuoteCoin,
				Active:       s.Status == "Trading",
				ContractSize: 1,
			}
			if s.FundingInterval > 0 {
				m.Info.FundingInterval = strconv.Itoa(s.FundingInterval)
			}
			out = append(out, m)
		}
		cursor = res.NextPageCursor
		if cursor == "" {
			break
		}
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
	var res tickersResult
	if err := g.get(ctx, "/v5/market/tickers", map[string]string{"category": category}, &res); err != nil {
		return nil, err
	}

	out := make(map[string]model.FundingRate, len(res.List))
	for _, it := range res.List {
		sym, ok := g.markets.SymbolOf(it.Symbol)
		if !ok {
			continue
		}
		rate, err := exchange.ParseFloat(it.FundingRate)
		if err != nil {
			continue
		}
		out[sym] = model.FundingRate{Symbol: sym, FundingRate: rate, NextFundingTime: exchange.ParseInt(it.NextFundingTime)}
	}
	return exchange.Filter(out, symbols), nil
}

func (g *Gateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return model.FundingRate{}, err
	}
	var res tickersResult
	if err := g.get(ctx, "/v5/market/tickers", map[string]string{"category": category, "symbol": id}, &res); err != nil {
		return model.FundingRate{}, err
	}
	if len(res.List) == 0 {
		return model.FundingRate{}, fmt.Errorf("bybit ticker %s: empty", id)
	}
	it := res.List[0]
	rate, err := exchange.ParseFloat(it.FundingRate)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("bybit funding rate %s: %w", id, err)
	}
	return model.FundingRate{Symbol: symbol, FundingRate: rate, NextFundingTime: exchange.ParseInt(it.NextFundingTime)}, nil
}

func klineInterval(timeframe string) (string, error) {
	switch timeframe {
	case "1m":
		return "1", nil
	case "5m":
		return "5", nil
	case "15m":
		return "15", nil
	case "1h":
		return "60", nil
	case "1d":
		return "D", nil
	}
	return "", fmt.Errorf("bybit timeframe %q: %w", timeframe, port.ErrNotSupported)
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	interval, err := klineInterval(timeframe)
	if err != nil {
		return nil, err
	}
	var res klineResult
	params := map[string]string{"category": category, "symbol": id, "interval": interval, "limit": strconv.Itoa(limit)}
	if err := g.get(ctx, "/v5/market/kline", params, &res); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(res.List))
	for _, row := range res.List {
		if len(row) < 6 {
			continue
		}
		c, err := parseCandle(row)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	// 接口按时间倒序返回
	slices.Reverse(out)
	return out, nil
}

func parseCandle(row []string) (model.Candle, error) {
	var vals [5]float64
	for i := range vals {
		v, err := exchange.ParseFloat(row[i+1])
		if err != nil {
			return model.Candle{}, err
		}
		vals[i] = v
	}
	return model.Candle{
		Timestamp: exchange.ParseInt(row[0]),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var res historyResult
	params := map[string]string{"category": category, "symbol": id, "limit": strconv.Itoa(limit)}
	if err := g.get(ctx, "/v5/market/funding/history", params, &res); err != nil {
		return nil, err
	}

	out := make([]model.FundingHistoryEntry, 0, len(res.List))
	for _, it := range res.List {
		rate, err := exchange.ParseFloat(it.FundingRate)
		if err != nil {
			continue
		}
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: rate, Timestamp: exchange.ParseInt(it.FundingRateTimestamp)})
	}
	slices.Reverse(out)
	return out, nil
}
