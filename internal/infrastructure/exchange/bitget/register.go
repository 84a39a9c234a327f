package bitget

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the Bitget USDT-FUTURES gateway factory
func init() {
	exchange.Register(exchange.Bitget, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
