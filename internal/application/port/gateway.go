package port

import (
	"context"
	"errors"

	"fundarb/internal/domain/model"
)

var (
	// ErrNotSupported gateway 不支持该操作
	ErrNotSupported = errors.New("operation not supported")
	// ErrUnknownSymbol 合约不在已加载的市场中
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Gateway 交易所公共行情网关。符号统一使用 BASE/QUOTE:SETTLE 形式。
type Gateway interface {
	Name() string
	Capabilities() model.Capabilities

	// LoadMarkets 加载市场元数据，首次成功后缓存
	LoadMarkets(ctx context.Context) (map[string]model.Market, error)
	Market(symbol string) (model.Market, error)

	// FetchFundingRates 批量获取；symbols 为空表示全部
	FetchFundingRates(ctx context.Context, symbols []string) (map[string]model.FundingRate, error)
	FetchFundingRate(ctx context.Context, symbol string) (model.FundingRate, error)

	// FetchOHLCV 按时间升序返回
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
	// FetchFundingRateHistory 按时间升序返回
	FetchFundingRateHistory(ctx context.Context, symbol string, limit int) ([]model.FundingHistoryEntry, error)
}
