package okx

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the OKX SWAP gateway factory
func init() {
	exchange.Register(exchange.OKX, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
