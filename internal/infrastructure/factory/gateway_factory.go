package factory

import (
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/exchange"

	// 各交易所包在 init() 中向 exchange registry 注册工厂
	_ "fundarb/internal/infrastructure/exchange/binance"
	_ "fundarb/internal/infrastructure/exchange/bitget"
	_ "fundarb/internal/infrastructure/exchange/bybit"
	_ "fundarb/internal/infrastructure/exchange/gateio"
	_ "fundarb/internal/infrastructure/exchange/mexc"
	_ "fundarb/internal/infrastructure/exchange/okx"

	"github.com/rs/zerolog/log"
)

// NewGateways 按配置启用的交易所构建 gateway。
// 没有注册实现的交易所名通过 unsupported 返回，由调用方记入跳过列表。
func NewGateways(cfg *config.Config) (gateways []port.Gateway, unsupported []string) {
	timeout := time.Duration(cfg.Scan.RequestTimeoutSec) * time.Second

	for _, name := range cfg.GetEnabledExchanges() {
		factory, ok := exchange.Get(name)
		if !ok {
			log.Warn().Msgf("⚠️ Unknown exchange or gateway not registered: %s", name)
			unsupported = append(unsupported, name)
			continue
		}

		exCfg := cfg.Exchange(name)
		gw := factory(exchange.GatewayConfig{
			BaseURL:    exCfg.BaseURL,
			Timeout:    timeout,
			RatePerSec: exCfg.RatePerSec,
		})
		gateways = append(gateways, gw)
		log.Info().Msgf("✓ %s gateway initialized", name)
	}

	return gateways, unsupported
}
