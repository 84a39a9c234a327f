package model

import "time"

// ========== Gateway Models ==========

// Capabilities 交易所能力描述，在构建 gateway 时一次性确定
type Capabilities struct {
	FundingRates       bool `json:"funding_rates"`        // 批量资金费率
	FundingRate        bool `json:"funding_rate"`         // 单个资金费率
	OHLCV              bool `json:"ohlcv"`                // K线
	FundingRateHistory bool `json:"funding_rate_history"` // 资金费率历史
}

// MarketInfo 交易所原始字段
type MarketInfo struct {
	FundingInterval string `json:"funding_interval,omitempty"` // 原始值：小时或分钟
}

// Market 统一市场元数据
type Market struct {
	Symbol       string     `json:"symbol"` // BTC/USDT:USDT
	ID           string     `json:"id"`     // 交易所原生符号
	Base         string     `json:"base"`
	Quote        string     `json:"quote"`
	Settle       string     `json:"settle"`
	Swap         bool       `json:"swap"`
	Linear       bool       `json:"linear"`
	Active       bool       `json:"active"`
	ContractSize float64    `json:"contract_size,omitempty"`
	Taker        *float64   `json:"taker,omitempty"`
	Maker        *float64   `json:"maker,omitempty"`
	Info         MarketInfo `json:"info"`
}

// FundingRate gateway 返回的资金费率
type FundingRate struct {
	Symbol          string  `json:"symbol"`
	FundingRate     float64 `json:"funding_rate"`
	NextFundingTime int64   `json:"next_funding_time"` // unix ms, 0 表示未知
}

// FundingHistoryEntry 资金费率历史记录
type FundingHistoryEntry struct {
	Symbol      string  `json:"symbol"`
	FundingRate float64 `json:"funding_rate"`
	Timestamp   int64   `json:"ts_ms"`
}

// Candle OHLCV
type Candle struct {
	Timestamp int64   `json:"ts_ms"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"` // base 数量
}

// ========== Scan Models ==========

// FundingQuote 单次扫描中某交易所某合约的资金费率
type FundingQuote struct {
	Exchange        string    `json:"exchange"`
	Symbol          string    `json:"symbol"`
	FundingRate     float64   `json:"funding_rate"`
	NextFundingTime int64     `json:"next_funding_time"` // unix ms, 0 表示未知
	ObservedAt      time.Time `json:"observed_at"`
}

// HasNextFunding 是否有下次结算时间
func (q FundingQuote) HasNextFunding() bool {
	return q.NextFundingTime > 0
}

// SpreadCandidate 跨交易所资金费率价差候选
type SpreadCandidate struct {
	Symbol           string  `json:"symbol"`
	LongExchange     string  `json:"long_exchange"`
	LongRate         float64 `json:"long_rate"`
	LongNextFunding  int64   `json:"long_next_funding"`
	ShortExchange    string  `json:"short_exchange"`
	ShortRate        float64 `json:"short_rate"`
	ShortNextFunding int64   `json:"short_next_funding"`
	Spread           float64 `json:"spread"`      // 有效费率差，>= 0
	TargetHour       int     `json:"target_hour"` // 参考时区的结算小时
}

// Fee 手续费率
type Fee struct {
	Taker float64 `json:"taker"`
	Maker float64 `json:"maker"`
}

// EnrichedOpportunity 经过流动性、结算周期、手续费补全的机会
type EnrichedOpportunity struct {
	SpreadCandidate
	LongVolume1m  float64 `json:"long_volume_1m"`
	ShortVolume1m float64 `json:"short_volume_1m"`
	LongInterval  float64 `json:"long_interval_hours"`
	ShortInterval float64 `json:"short_interval_hours"`
	LongFee       Fee     `json:"long_fee"`
	ShortFee      Fee     `json:"short_fee"`
	Asymmetric    bool    `json:"asymmetric"` // 两侧结算周期不同
}

// ScanRun 单次扫描摘要
type ScanRun struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Exchanges     int       `json:"exchanges"`
	Quotes        int       `json:"quotes"`
	Candidates    int       `json:"candidates"`
	Opportunities int       `json:"opportunities"`
	Skipped       []string  `json:"skipped,omitempty"`
}
