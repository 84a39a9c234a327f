package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func TestMarketCacheLoadsOnce(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) ([]model.Market, error) {
		calls++
		return []model.Market{{Symbol: "BTC/USDT:USDT", ID: "BTCUSDT"}}, nil
	}

	c := NewMarketCache()
	for i := 0; i < 3; i++ {
		m, err := c.Load(context.Background(), fetch)
		require.NoError(t, err)
		assert.Len(t, m, 1)
	}
	assert.Equal(t, 1, calls)

	sym, ok := c.SymbolOf("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, "BTC/USDT:USDT", sym)

	id, err := c.IDOf("BTC/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", id)

	_, err = c.Market("ETH/USDT:USDT")
	assert.ErrorIs(t, err, port.ErrUnknownSymbol)
}

func TestMarketCacheRetriesAfterFailure(t *testing.T) {
	c := NewMarketCache()
	_, err := c.Load(context.Background(), func(ctx context.Context) ([]model.Market, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, c.Loaded())

	_, err = c.Load(context.Background(), func(ctx context.Context) ([]model.Market, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, c.Loaded())
}

func TestFilter(t *testing.T) {
	rates := map[string]model.FundingRate{"A": {}, "B": {}}
	assert.Len(t, Filter(rates, nil), 2)
	assert.Len(t, Filter(rates, []string{"A", "C"}), 1)
}

func TestMarketCachePrefersSwap(t *testing.T) {
	c := NewMarketCache()
	c.Set([]model.Market{
		{Symbol: "BTC/USDT:USDT", ID: "BTCUSDT", Swap: true},
		{Symbol: "BTC/USDT:USDT", ID: "BTCUSDT_250328"},
	})
	m, err := c.Market("BTC/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", m.ID)
	_, ok := c.SymbolOf("BTCUSDT_250328")
	assert.False(t, ok)
}
