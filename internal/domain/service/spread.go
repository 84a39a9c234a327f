package service

import (
	"slices"
	"time"

	"fundarb/internal/domain/model"
)

// DirectionalSpread 做多 long、做空 short 时每单位名义价值的净资金费收益
func DirectionalSpread(longEffective, shortEffective float64) float64 {
	return shortEffective - longEffective
}

// SpreadDetector 在目标结算小时内寻找跨交易所资金费率价差
type SpreadDetector struct {
	threshold   float64
	targetHours []int
	loc         *time.Location
}

func NewSpreadDetector(threshold float64, targetHours []int, loc *time.Location) *SpreadDetector {
	if len(targetHours) == 0 {
		targetHours = DefaultTargetHours
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SpreadDetector{
		threshold:   threshold,
		targetHours: slices.Clone(targetHours),
		loc:         loc,
	}
}

// Location 参考时区
func (d *SpreadDetector) Location() *time.Location { return d.loc }

// TargetHours 目标结算小时
func (d *SpreadDetector) TargetHours() []int { return slices.Clone(d.targetHours) }

// GroupBySymbol 按合约分组，组内按交易所名排序
func GroupBySymbol(quotes []model.FundingQuote) map[string][]model.FundingQuote {
	groups := make(map[string][]model.FundingQuote)
	for _, q := range quotes {
		groups[q.Symbol] = append(groups[q.Symbol], q)
	}
	for sym := range groups {
		slices.SortStableFunc(groups[sym], func(a, b model.FundingQuote) int {
			switch {
			case a.Exchange < b.Exchange:
				return -1
			case a.Exchange > b.Exchange:
				return 1
			}
			return 0
		})
	}
	return groups
}

// Best 比较两个方向，返回价差较大的一侧。
// 价差相同时交易所名较小的一侧做多。
func (d *SpreadDetector) Best(a, b model.FundingQuote, hour int) model.SpreadCandidate {
	if b.Exchange < a.Exchange {
		a, b = b, a
	}
	effA := EffectiveRate(a.FundingRate, a.NextFundingTime, hour, d.loc)
	effB := EffectiveRate(b.FundingRate, b.NextFundingTime, hour, d.loc)

	long, short := a, b
	spread := DirectionalSpread(effA, effB)
	if rev := DirectionalSpread(effB, effA); rev > spread {
		long, short = b, a
		spread = rev
	}

	return model.SpreadCandidate{
		Symbol:           a.Symbol,
		LongExchange:     long.Exchange,
		LongRate:         long.FundingRate,
		LongNextFunding:  long.NextFundingTime,
		ShortExchange:    short.Exchange,
		ShortRate:        short.FundingRate,
		ShortNextFunding: short.NextFundingTime,
		Spread:           spread,
		TargetHour:       hour,
	}
}

// Detect 对所有 (合约, 交易所对, 目标小时) 组合输出价差严格大于阈值的候选。
// 输出顺序：合约名、交易所对、目标小时。
func (d *SpreadDetector) Detect(quotes []model.FundingQuote) []model.SpreadCandidate {
	groups := GroupBySymbol(quotes)
	symbols := make([]string, 0, len(groups))
	for sym, qs := range groups {
		if len(qs) >= 2 {
			symbols = append(symbols, sym)
		}
	}
	slices.Sort(symbols)

	var out []model.SpreadCandidate
	for _, sym := range symbols {
		qs := groups[sym]
		for i := 0; i < len(qs); i++ {
			for j := i + 1; j < len(qs); j++ {
				if qs[i].Exchange == qs[j].Exchange {
					continue
				}
				for _, hour := range d.targetHours {
					c := d.Best(qs[i], qs[j], hour)
					if c.Spread > d.threshold {
						out = append(out, c)
					}
				}
			}
		}
	}
	return out
}
