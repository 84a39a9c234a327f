package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://contract.mexc.com"

// Gateway MEXC 合约公共行情
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
	now     func() time.Time
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.MEXC, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
		now:     time.Now,
	}
}

func (g *Gateway) Name() string { return exchange.MEXC }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type contractDetail struct {
	Symbol       string  `json:"symbol"`
	BaseCoin     string  `json:"baseCoin"`
	QuoteCoin    string  `json:"quoteCoin"`
	SettleCoin   string  `json:"settleCoin"`
	ContractSize float64 `json:"contractSize"`
	TakerFeeRate float64 `json:"takerFeeRate"`
	MakerFeeRate float64 `json:"makerFeeRate"`
	State        int     `json:"state"`
}

type fundingRate struct {
	Symbol         string  `json:"symbol"`
	FundingRate    float64 `json:"fundingRate"`
	CollectCycle   int     `json:"collectCycle"` // 小时
	NextSettleTime int64   `json:"nextSettleTime"`
}

type klineData struct {
	Time  []int64   `json:"time"` // 秒
	Open  []float64 `json:"open"`
	Close []float64 `json:"close"`
	High  []float64 `json:"high"`
	Low   []float64 `json:"low"`
	Vol   []float64 `json:"vol"` // 张
}

type historyData struct {
	ResultList []struct {
		Symbol      string  `json:"symbol"`
		FundingRate float64 `json:"fundingRate"`
		SettleTime  int64   `json:"settleTime"`
	} `json:"resultList"`
}

func (g *Gateway) get(ctx context.Context, path string, params map[string]string, out any) error {
	var env envelope
	if err := g.rest.GetJSON(ctx, path, params, &env); err != nil {
		return err
	}
	if !env.Success || env.Code != 0 {
		return fmt.Errorf("mexc api error: %d %s", env.Code, env.Message)
	}
	return exchange.ParseJSON(env.Data, out)
}

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	var items []contractDetail
	if err := g.get(ctx, "/api/v1/contract/detail", nil, &items); err != nil {
		return nil, err
	}

	// 结算周期只在资金费率接口中提供
	cycles := map[string]int{}
	var rates []fundingRate
	if err := g.get(ctx, "/api/v1/contract/funding_rate", nil, &rates); err != nil {
		log.Debug().Str("exchange", exchange.MEXC).Err(err).Msg("funding cycles unavailable")
	}
	for _, r := range rates {
		cycles[r.Symbol] = r.CollectCycle
	}

	out := make([]model.Market, 0, len(items))
	for _, it := range items {
		if it.QuoteCoin != "USDT" {
			continue
		}
		taker, maker := it.TakerFeeRate, it.MakerFeeRate
		m := model.Market{
			Symbol:       exchange.UnifiedSymbol(it.BaseCoin, it.QuoteCoin, it.SettleCoin),
			ID:           it.Symbol,
			Base:         it.BaseCoin,
			Quote:        it.QuoteCoin,
			Settle:       it.SettleCoin,
			Swap:         true,
			Linear:       it.SettleCoin == it.QuoteCoin,
			Active:       it.State == 0,
			ContractSize: it.ContractSize,
			Taker:        &taker,
			Maker:        &maker,
		}
		if c := cycles[it.Symbol]; c > 0 {
			m.Info.FundingInterval = strconv.Itoa(c)
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
	var items []fundingRate
	if err := g.get(ctx, "/api/v1/contract/funding_rate", nil, &items); err != nil {
		return nil, err
	}
	out := make(map[string]model.FundingRate, len(items))
	for _, it := range items {
		sym, ok := g.markets.SymbolOf(it.Symbol)
		if !ok {
			continue
		}
		out[sym] = model.FundingRate{Symbol: sym, FundingRate: it.FundingRate, NextFundingTime: it.NextSettleTime}
	}
	return exchange.Filter(out, symbols), nil
}

func (g *Gateway) FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return model.FundingRate{}, err
	}
	var it fundingRate
	if err := g.get(ctx, "/api/v1/contract/funding_rate/"+url.PathEscape(id), nil, &it); err != nil {
		return model.FundingRate{}, err
	}
	return model.FundingRate{Symbol: symbol, FundingRate: it.FundingRate, NextFundingTime: it.NextSettleTime}, nil
}

func intervalOf(timeframe string) (string, time.Duration, error) {
	switch timeframe {
	case "1m":
		return "Min1", time.Minute, nil
	case "5m":
		return "Min5", 5 * time.Minute, nil
	case "15m":
		return "Min15", 15 * time.Minute, nil
	case "1h":
		return "Min60", time.Hour, nil
	case "1d":
		return "Day1", 24 * time.Hour, nil
	}
	return "", 0, fmt.Errorf("mexc timeframe %q: %w", timeframe, port.ErrNotSupported)
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	m, err := g.markets.Market(symbol)
	if err != nil {
		return nil, err
	}
	interval, step, err := intervalOf(timeframe)
	if err != nil {
		return nil, err
	}
	end := g.now()
	start := end.Add(-time.Duration(limit) * step)
	params := map[string]string{
		"interval": interval,
		"start":    strconv.FormatInt(start.Unix(), 10),
		"end":      strconv.FormatInt(end.Unix(), 10),
	}
	var d klineData
	if err := g.get(ctx, "/api/v1/contract/kline/"+url.PathEscape(m.ID), params, &d); err != nil {
		return nil, err
	}

	size := m.ContractSize
	if size <= 0 {
		size = 1
	}
	n := min(len(d.Time), len(d.Open), len(d.Close), len(d.High), len(d.Low), len(d.Vol))
	out := make([]model.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Candle{
			Timestamp: d.Time[i] * 1000,
			Open:      d.Open[i],
			High:      d.High[i],
			Low:       d.Low[i],
			Close:     d.Close[i],
			Volume:    d.Vol[i] * size,
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var d historyData
	params := map[string]string{"symbol": id, "page_num": "1", "page_size": strconv.Itoa(limit)}
	if err := g.get(ctx, "/api/v1/contract/funding_rate/history", params, &d); err != nil {
		return nil, err
	}
	out := make([]model.FundingHistoryEntry, 0, len(d.ResultList))
	for i := len(d.ResultList) - 1; i >= 0; i-- {
		it := d.ResultList[i]
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: it.FundingRate, Timestamp: it.SettleTime})
	}
	return out, nil
}
