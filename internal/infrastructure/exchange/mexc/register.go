package mexc

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the MEXC contract gateway factory
func init() {
	exchange.Register(exchange.MEXC, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
