package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSingularCeiling 无批量接口时允许逐个拉取的最大合约数
const DefaultSingularCeiling = 20

// CollectorOptions 采集参数
type CollectorOptions struct {
	Symbols         []string        // 为空表示全部线性永续
	SingularCeiling int             // 超过则跳过该交易所，仅在未指定 Symbols 时生效
	ForceSingular   map[string]bool // 即使支持批量也逐个拉取
	Now             func() time.Time
}

// RateCollector 并发采集各交易所资金费率
type RateCollector struct {
	symbols       []string
	ceiling       int
	forceSingular map[string]bool
	now           func() time.Time
}

func NewRateCollector(opts CollectorOptions) *RateCollector {
	if opts.SingularCeiling <= 0 {
		opts.SingularCeiling = DefaultSingularCeiling
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	force := make(map[string]bool, len(opts.ForceSingular))
	for k, v := range opts.ForceSingular {
		force[k] = v
	}
	return &RateCollector{
		symbols:       slices.Clone(opts.Symbols),
		ceiling:       opts.SingularCeiling,
		forceSingular: force,
		now:           opts.Now,
	}
}

// Collect 每个交易所一个 worker，单个交易所失败只记录日志
func (c *RateCollector) Collect(ctx context.Context, sc *ScanContext) []model.FundingQuote {
	gateways := sc.Gateways()
	if len(gateways) == 0 {
		return nil
	}

	var (
		mu  sync.Mutex
		out []model.FundingQuote
	)

	var g errgroup.Group
	g.SetLimit(len(gateways))
	for _, gw := range gateways {
		gw := gw
		g.Go(func() error {
			quotes, err := c.collectExchange(ctx, sc, gw)
			if err != nil {
				log.Error().Str("exchange", gw.Name()).Err(err).Msg("collect funding rates failed")
				return nil
			}
			log.Info().Str("exchange", gw.Name()).Int("quotes", len(quotes)).Msg("funding rates collected")

			mu.Lock()
			out = append(out, quotes...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *RateCollector) collectExchange(ctx context.Context, sc *ScanContext, gw port.Gateway) ([]model.FundingQuote, error) {
	name := gw.Name()
	markets, err := gw.LoadMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}

	caps := gw.Capabilities()
	if caps.FundingRates && !c.forceSingular[name] {
		rates, err := gw.FetchFundingRates(ctx, c.symbols)
		if err != nil {
			return nil, fmt.Errorf("fetch funding rates: %w", err)
		}
		observed := c.now()
		quotes := make([]model.FundingQuote, 0, len(rates))
		for sym, r := range rates {
			if sym == "" {
				sym = r.Symbol
			}
			quotes = append(quotes, toQuote(name, sym, r, observed))
		}
		return quotes, nil
	}

	var symbols []string
	if len(c.symbols) > 0 {
		for _, sym := range c.symbols {
			if _, ok := markets[sym]; ok {
				symbols = append(symbols, sym)
			}
		}
	} else {
		symbols = LinearSwapSymbols(markets)
	}
	if len(c.symbols) == 0 && len(symbols) > c.ceiling {
		entry := fmt.Sprintf("%s (%d symbols)", name, len(symbols))
		sc.MarkSkipped(entry)
		log.Warn().Str("exchange", name).Int("symbols", len(symbols)).Int("ceiling", c.ceiling).
			Msg("no bulk funding endpoint, exchange skipped")
		return nil, nil
	}
	if !caps.FundingRate {
		return nil, nil
	}

	log.Warn().Str("exchange", name).Int("symbols", len(symbols)).Msg("fetching funding rates one by one")
	quotes := make([]model.FundingQuote, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return quotes, nil
		}
		r, err := gw.FetchFundingRate(ctx, sym)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Debug().Str("exchange", name).Str("symbol", sym).Err(err).Msg("fetch funding rate failed")
			}
			continue
		}
		quotes = append(quotes, toQuote(name, sym, r, c.now()))
	}
	return quotes, nil
}

// LinearSwapSymbols 线性永续合约，已排序
func LinearSwapSymbols(markets map[string]model.Market) []string {
	out := make([]string, 0, len(markets))
	for sym, m := range markets {
		if m.Swap && m.Linear {
			out = append(out, sym)
		}
	}
	slices.Sort(out)
	return out
}

func toQuote(exchange, symbol string, r model.FundingRate, observed time.Time) model.FundingQuote {
	return model.FundingQuote{
		Exchange:        exchange,
		Symbol:          symbol,
		FundingRate:     r.FundingRate,
		NextFundingTime: r.NextFundingTime,
		ObservedAt:      observed,
	}
}
