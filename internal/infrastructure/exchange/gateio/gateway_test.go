package gateio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/infrastructure/exchange"
)

const contractsJSON = `[
	{"name":"BTC_USDT","type":"direct","quanto_multiplier":"0.0001","funding_rate":"0.000075","funding_interval":28800,"funding_next_apply":1741622400,"maker_fee_rate":"-0.00005","taker_fee_rate":"0.00075","in_delisting":false},
	{"name":"PEPE_USDT","type":"direct","quanto_multiplier":"10000000","funding_rate":"-0.0021","funding_interval":14400,"funding_next_apply":1741608000,"maker_fee_rate":"","taker_fee_rate":"0.00075","in_delisting":false}
]`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/futures/usdt/contracts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(contractsJSON))
	})
	mux.HandleFunc("/api/v4/futures/usdt/contracts/PEPE_USDT", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"PEPE_USDT","funding_rate":"-0.0021","funding_next_apply":1741608000}`))
	})
	mux.HandleFunc("/api/v4/futures/usdt/candlesticks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"t":1741600000,"v":2000,"c":"80000","h":"80100","l":"79900","o":"80050","sum":"16000"}]`))
	})
	mux.HandleFunc("/api/v4/futures/usdt/funding_rate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"t":1741593600,"r":"0.0001"},{"t":1741579200,"r":"0.0002"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGatewayMarketsCarryFeesAndInterval(t *testing.T) {
	g := New(exchange.GatewayConfig{BaseURL: newTestServer(t).URL})
	markets, err := g.LoadMarkets(context.Background())
	require.NoError(t, err)

	btc := markets["BTC/USDT:USDT"]
	require.NotNil(t, btc.Taker)
	require.NotNil(t, btc.Maker)
	assert.Equal(t, 0.00075, *btc.Taker)
	assert.Equal(t, -0.00005, *btc.Maker)
	assert.Equal(t, "8", btc.Info.FundingInterval)

	pepe := markets["PEPE/USDT:USDT"]
	assert.Nil(t, pepe.Maker)
	assert.Equal(t, "4", pepe.Info.FundingInterval)
}

func TestGatewayFundingRates(t *testing.T) {
	g := New(exchange.GatewayConfig{BaseURL: newTestServer(t).URL})
	rates, err := g.FetchFundingRates(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, int64(1741622400000), rates["BTC/USDT:USDT"].NextFundingTime)

	one, err := g.FetchFundingRate(context.Background(), "PEPE/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, -0.0021, one.FundingRate)
}

func TestGatewayCandlesAndHistory(t *testing.T) {
	g := New(exchange.GatewayConfig{BaseURL: newTestServer(t).URL})
	_, err := g.LoadMarkets(context.Background())
	require.NoError(t, err)

	candles, err := g.FetchOHLCV(context.Background(), "BTC/USDT:USDT", "1m", 60)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 0.2, candles[0].Volume, 1e-12)
	assert.Equal(t, int64(1741600000000), candles[0].Timestamp)

	hist, err := g.FetchFundingRateHistory(context.Background(), "BTC/USDT:USDT", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Less(t, hist[0].Timestamp, hist[1].Timestamp)
}
