package exchange

import (
	"slices"

	"fundarb/internal/application/port"

	"github.com/rs/zerolog/log"
)

const (
	Binance = "binance"
	Bybit   = "bybit"
	OKX     = "okx"
	GateIO  = "gateio"
	MEXC    = "mexc"
	Bitget  = "bitget"
)

// Factory 构建 gateway
type Factory func(cfg GatewayConfig) port.Gateway

// registry maps exchange names to their gateway factories
var registry = make(map[string]Factory)

// Register 由各交易所包的 init() 调用
func Register(exchangeName string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", exchangeName).Msg("invalid gateway factory")
		return
	}
	if _, exists := registry[exchangeName]; exists {
		log.Warn().Str("exchange", exchangeName).Msg("gateway factory already registered, overwriting")
	}
	registry[exchangeName] = factory
}

// Get 获取已注册的 gateway factory
func Get(exchangeName string) (Factory, bool) {
	factory, ok := registry[exchangeName]
	return factory, ok
}

// Registered 已注册的交易所名，排序
func Registered() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
