package binance

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the Binance USDT-M gateway factory
func init() {
	exchange.Register(exchange.Binance, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
