package svc

import "errors"

// ErrNoGateways 错误：启用的交易所都没有可用实现
var ErrNoGateways = errors.New("no exchange gateways available")
