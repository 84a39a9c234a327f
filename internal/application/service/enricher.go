package service

import (
	"context"
	"slices"

	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMinVolume1m  = 10.0
	DefaultCandleLimit  = 60
	DefaultHistoryLimit = 10
	volumeTimeframe     = "1m"
)

// EnricherOptions 补全参数
type EnricherOptions struct {
	MinVolume1m  float64 // 含边界
	CandleLimit  int
	HistoryLimit int
}

// Enricher 为候选补全成交量、结算周期和手续费。顺序执行，不并发。
type Enricher struct {
	sc   *ScanContext
	opts EnricherOptions
}

func NewEnricher(sc *ScanContext, opts EnricherOptions) *Enricher {
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = DefaultCandleLimit
	}
	if opts.HistoryLimit < 2 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Enricher{sc: sc, opts: opts}
}

// Enrich 成交量不足的候选被丢弃，其余按输入顺序返回
func (e *Enricher) Enrich(ctx context.Context, candidates []model.SpreadCandidate) []model.EnrichedOpportunity {
	var out []model.EnrichedOpportunity
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		opp, ok := e.enrichOne(ctx, c)
		if !ok {
			continue
		}
		out = append(out, opp)
		log.Info().
			Str("symbol", c.Symbol).
			Str("long", c.LongExchange).
			Str("short", c.ShortExchange).
			Int("hour", c.TargetHour).
			Float64("spread", c.Spread).
			Bool("asymmetric", opp.Asymmetric).
			Msg("opportunity found")
	}
	return out
}

func (e *Enricher) enrichOne(ctx context.Context, c model.SpreadCandidate) (model.EnrichedOpportunity, bool) {
	volLong, ok := e.Volume1m(ctx, c.LongExchange, c.Symbol)
	if !ok || volLong < e.opts.MinVolume1m {
		log.Debug().Str("exchange", c.LongExchange).Str("symbol", c.Symbol).Float64("volume", volLong).Msg("long side below min volume")
		return model.EnrichedOpportunity{}, false
	}
	volShort, ok := e.Volume1m(ctx, c.ShortExchange, c.Symbol)
	if !ok || volShort < e.opts.MinVolume1m {
		log.Debug().Str("exchange", c.ShortExchange).Str("symbol", c.Symbol).Float64("volume", volShort).Msg("short side below min volume")
		return model.EnrichedOpportunity{}, false
	}

	intLong := e.FundingInterval(ctx, c.LongExchange, c.Symbol)
	intShort := e.FundingInterval(ctx, c.ShortExchange, c.Symbol)

	return model.EnrichedOpportunity{
		SpreadCandidate: c,
		LongVolume1m:    volLong,
		ShortVolume1m:   volShort,
		LongInterval:    intLong,
		ShortInterval:   intShort,
		LongFee:         e.Fees(c.LongExchange, c.Symbol),
		ShortFee:        e.Fees(c.ShortExchange, c.Symbol),
		Asymmetric:      intLong != intShort,
	}, true
}

// Volume1m 最近 N 根 1 分钟 K 线的平均名义成交额，ok=false 表示不可用
func (e *Enricher) Volume1m(ctx context.Context, exchange, symbol string) (float64, bool) {
	gw, ok := e.sc.Gateway(exchange)
	if !ok || !gw.Capabilities().OHLCV {
		return 0, false
	}
	candles, err := gw.FetchOHLCV(ctx, symbol, volumeTimeframe, e.opts.CandleLimit)
	if err != nil {
		log.Debug().Str("exchange", exchange).Str("symbol", symbol).Err(err).Msg("fetch ohlcv failed")
		return 0, false
	}
	return dsvc.AverageNotionalVolume(candles)
}

// FundingInterval 市场元数据 > 历史推算 > 默认 8 小时
func (e *Enricher) FundingInterval(ctx context.Context, exchange, symbol string) float64 {
	gw, ok := e.sc.Gateway(exchange)
	if !ok {
		return dsvc.DefaultIntervalHours
	}
	m, err := gw.Market(symbol)
	if err != nil {
		return dsvc.DefaultIntervalHours
	}

	fromInfo := func() (float64, bool) {
		return dsvc.NormalizeIntervalHours(m.Info.FundingInterval)
	}
	fromHistory := func() (float64, bool) {
		if !gw.Capabilities().FundingRateHistory {
			return 0, false
		}
		hist, err := gw.FetchFundingRateHistory(ctx, symbol, e.opts.HistoryLimit)
		if err != nil {
			log.Debug().Str("exchange", exchange).Str("symbol", symbol).Err(err).Msg("fetch funding history failed")
			return 0, false
		}
		hist = slices.Clone(hist)
		slices.SortFunc(hist, func(a, b model.FundingHistoryEntry) int {
			switch {
			case a.Timestamp < b.Timestamp:
				return -1
			case a.Timestamp > b.Timestamp:
				return 1
			}
			return 0
		})
		return dsvc.IntervalFromHistory(hist)
	}

	return dsvc.FirstOf(dsvc.DefaultIntervalHours, fromInfo, fromHistory)
}

// Fees 市场手续费，缺失时取默认值
func (e *Enricher) Fees(exchange, symbol string) model.Fee {
	gw, ok := e.sc.Gateway(exchange)
	if !ok {
		return dsvc.MarketFee(nil)
	}
	m, err := gw.Market(symbol)
	if err != nil {
		return dsvc.MarketFee(nil)
	}
	return dsvc.MarketFee(&m)
}
