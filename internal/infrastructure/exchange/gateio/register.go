package gateio

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// init() automatically registers the Gate.io USDT futures gateway factory
func init() {
	exchange.Register(exchange.GateIO, func(cfg exchange.GatewayConfig) port.Gateway {
		return New(cfg)
	})
}
