package gateio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://api.gateio.ws"
	settle         = "usdt"
)

// Gateway Gate.io USDT 结算永续。合约列表同时携带资金费率和手续费。
type Gateway struct {
	rest    *exchange.RESTClient
	markets *exchange.MarketCache
}

var _ port.Gateway = (*Gateway)(nil)

func New(cfg exchange.GatewayConfig) *Gateway {
	return &Gateway{
		rest:    exchange.NewRESTClient(exchange.GateIO, defaultBaseURL, cfg),
		markets: exchange.NewMarketCache(),
	}
}

func (g *Gateway) Name() string { return exchange.GateIO }

func (g *Gateway) Capabilities() model.Capabilities {
	return model.Capabilities{FundingRates: true, FundingRate: true, OHLCV: true, FundingRateHistory: true}
}

type contract struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	QuantoMultiplier string  `json:"quanto_multiplier"`
	FundingRate      string  `json:"funding_rate"`
	FundingInterval  int     `json:"funding_interval"`   // 秒
	FundingNextApply float64 `json:"funding_next_apply"` // 秒
	MakerFeeRate     string  `json:"maker_fee_rate"`
	TakerFeeRate     string  `json:"taker_fee_rate"`
	InDelisting      bool    `json:"in_delisting"`
}

type candlestick struct {
	T   int64  `json:"t"` // 秒
	V   int64  `json:"v"` // 张
	C   string `json:"c"`
	H   string `json:"h"`
	L   string `json:"l"`
	O   string `json:"o"`
	Sum string `json:"sum"`
}

type fundingPoint struct {
	T int64  `json:"t"` // 秒
	R string `json:"r"`
}

func contractsPath() string { return "/api/v4/futures/" + settle + "/contracts" }

func (g *Gateway) LoadMarkets(ctx context.Context) (map[string]model.Market, error) {
	return g.markets.Load(ctx, g.fetchMarkets)
}

func (g *Gateway) fetchContracts(ctx context.Context) ([]contract, error) {
	var items []contract
	if err := g.rest.GetJSON(ctx, contractsPath(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (g *Gateway) fetchMarkets(ctx context.Context) ([]model.Market, error) {
	items, err := g.fetchContracts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(items))
	for _, c := range items {
		if m, ok := toMarket(c); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func toMarket(c contract) (model.Market, bool) {
	base, quote, ok := strings.Cut(c.Name, "_")
	if !ok || quote != "USDT" {
		return model.Market{}, false
	}
	size, err := exchange.ParseFloat(c.QuantoMultiplier)
	if err != nil || size <= 0 {
		size = 1
	}
	m := model.Market{
		Symbol:       exchange.UnifiedSymbol(base, quote, quote),
		ID:           c.Name,
		Base:         base,
		Quote:        quote,
		Settle:       quote,
		Swap:         true,
		Linear:       true,
		Active:       !c.InDelisting,
		ContractSize: size,
		Taker:        exchange.FloatPtr(c.TakerFeeRate),
		Maker:        exchange.FloatPtr(c.MakerFeeRate),
	}
	if c.FundingInterval >= 3600 {
		m.Info.FundingInterval = strconv.Itoa(c.FundingInterval / 3600)
	}
	return m, true
}

func toFundingRate(symbol string, c contract) (model.FundingRate, error) {
	rate, err := exchange.ParseFloat(c.FundingRate)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("gateio funding rate %s: %w", c.Name, err)
	}
	return model.FundingRate{Symbol: symbol, FundingRate: rate, NextFundingTime: int64(c.FundingNextApply) * 1000}, nil
}

func (g *Gateway) Market(symbol string) (model.Market, error) {
	return g.markets.Market(symbol)
}

func (g *Gateway) FetchFundingRates(ctx context.Context, symbols []string) (map[string]model.FundingRate, error) {
	if _, err := g.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	items, err := g.fetchContracts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.FundingRate, len(items))
	for _, c := range items {
		sym, ok := g.markets.SymbolOf(c.Name)
		if !ok {
			continue
		}
		r, err := toFundingRate(sym, c)
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
	var c contract
	if err := g.rest.GetJSON(ctx, contractsPath()+"/"+url.PathEscape(id), nil, &c); err != nil {
		return model.FundingRate{}, err
	}
	return toFundingRate(symbol, c)
}

func (g *Gateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	m, err := g.markets.Market(symbol)
	if err != nil {
		return nil, err
	}
	var items []candlestick
	params := map[string]string{"contract": m.ID, "interval": timeframe, "limit": strconv.Itoa(limit)}
	if err := g.rest.GetJSON(ctx, "/api/v4/futures/"+settle+"/candlesticks", params, &items); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(items))
	for _, it := range items {
		o, errO := exchange.ParseFloat(it.O)
		h, errH := exchange.ParseFloat(it.H)
		l, errL := exchange.ParseFloat(it.L)
		c, errC := exchange.ParseFloat(it.C)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		out = append(out, model.Candle{
			Timestamp: it.T * 1000,
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    float64(it.V) * m.ContractSize,
		})
	}
	return out, nil
}

func (g *Gateway) FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error) {
	id, err := g.markets.IDOf(symbol)
	if err != nil {
		return nil, err
	}
	var items []fundingPoint
	params := map[string]string{"contract": id, "limit": strconv.Itoa(limit)}
	if err := g.rest.GetJSON(ctx, "/api/v4/futures/"+settle+"/funding_rate", params, &items); err != nil {
		return nil, err
	}
	out := make([]model.FundingHistoryEntry, 0, len(items))
	// 接口按时间倒序返回
	for i := len(items) - 1; i >= 0; i-- {
		rate, err := exchange.ParseFloat(items[i].R)
		if err != nil {
			continue
		}
		out = append(out, model.FundingHistoryEntry{Symbol: symbol, FundingRate: rate, Timestamp: items[i].T * 1000})
	}
	return out, nil
}
