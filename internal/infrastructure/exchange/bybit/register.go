package bybit

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the Bybit v5 linear gateway factory
func init() {
	exchange.Register(exchange.Bybit, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
