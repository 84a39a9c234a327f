package exchange

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// MarketCache 首次成功加载后缓存市场元数据，并维护原生 ID 与统一符号映射
type MarketCache struct {
	mu      sync.RWMutex
	loaded  bool
	markets map[string]model.Market
	byID    map[string]string
}

func NewMarketCache() *MarketCache {
	return &MarketCache{}
}

// Load 已加载则直接返回副本
func (c *MarketCache) Load(ctx context.Context, fetch func(ctx context.Context) ([]model.Market, error)) (map[string]model.Market, error) {
	c.mu.RLock()
	if c.loaded {
		out := maps.Clone(c.markets)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	list, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(list)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.markets), nil
}

// Set 覆盖缓存
func (c *MarketCache) Set(list []model.Market) {
	markets := make(map[string]model.Market, len(list))
	byID := make(map[string]string, len(list))
	for _, m := range list {
		if m.Symbol == "" || m.ID == "" {
			continue
		}
		// 同一统一符号下交割合约不覆盖永续
		if prev, ok := markets[m.Symbol]; ok {
			if prev.Swap && !m.Swap {
				continue
			}
			delete(byID, prev.ID)
		}
		markets[m.Symbol] = m
		byID[m.ID] = m.Symbol
	}

	c.mu.Lock()
	c.markets = markets
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
}

// Loaded 是否已加载
func (c *MarketCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *MarketCache) Market(symbol string) (model.Market, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markets[symbol]
	if !ok {
		return model.Market{}, fmt.Errorf("%w: %s", port.ErrUnknownSymbol, symbol)
	}
	return m, nil
}

// SymbolOf 原生 ID -> 统一符号
func (c *MarketCache) SymbolOf(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sym, ok := c.byID[id]
	return sym, ok
}

// IDOf 统一符号 -> 原生 ID
func (c *MarketCache) IDOf(symbol string) (string, error) {
	m, err := c.Market(symbol)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// Filter 按统一符号过滤，symbols 为空时原样返回
func Filter(rates map[string]model.FundingRate, symbols []string) map[string]model.FundingRate {
	if len(symbols) == 0 {
		return rates
	}
	out := make(map[string]model.FundingRate, len(symbols))
	for _, s := range symbols {
		if r, ok := rates[s]; ok {
			out[s] = r
		}
	}
	return out
}
