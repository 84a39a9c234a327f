package service

import (
	"strconv"
	"strings"

	"fundarb/internal/domain/model"
)

const (
	DefaultIntervalHours = 8.0
	DefaultTakerFee      = 0.0005
	DefaultMakerFee      = 0.0002
)

// Resolver 有序回退链中的一环，ok=false 表示继续下一环
type Resolver[T any] func() (T, bool)

// FirstOf 返回第一个命中的结果，全部未命中则返回 fallback
func FirstOf[T any](fallback T, chain ...Resolver[T]) T {
	for _, r := range chain {
		if r == nil {
			continue
		}
		if v, ok := r(); ok {
			return v
		}
	}
	return fallback
}

// NormalizeIntervalHours 解析交易所上报的结算周期。大于 24 视为分钟。
func NormalizeIntervalHours(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	if v > 24 {
		return float64(v) / 60, true
	}
	return float64(v), true
}

// IntervalFromHistory 用最后两条历史记录的时间差推算结算周期（小时）
func IntervalFromHistory(entries []model.FundingHistoryEntry) (float64, bool) {
	n := len(entries)
	if n < 2 {
		return 0, false
	}
	delta := entries[n-1].Timestamp - entries[n-2].Timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta == 0 {
		return 0, false
	}
	return float64(delta) / 3_600_000, true
}

// AverageNotionalVolume 每根K线 close*volume 的均值
func AverageNotionalVolume(candles []model.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	var sum float64
	for _, c := range candles {
		sum += c.Close * c.Volume
	}
	return sum / float64(len(candles)), true
}

// MarketFee 从市场元数据解析手续费，缺失字段分别取默认值
func MarketFee(m *model.Market) model.Fee {
	fee := model.Fee{Taker: DefaultTakerFee, Maker: DefaultMakerFee}
	if m == nil {
		return fee
	}
	if m.Taker != nil {
		fee.Taker = *m.Taker
	}
	if m.Maker != nil {
		fee.Maker = *m.Maker
	}
	return fee
}
