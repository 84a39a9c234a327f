package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/public/instruments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SWAP", r.URL.Query().Get("instType"))
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","instType":"SWAP","ctType":"linear","ctVal":"0.01","settleCcy":"USDT","uly":"BTC-USDT","state":"live"},
			{"instId":"BTC-USD-SWAP","instType":"SWAP","ctType":"inverse","ctVal":"100","settleCcy":"BTC","uly":"BTC-USD","state":"live"}
		]}`))
	})
	mux.HandleFunc("/api/v5/public/funding-rate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC-USDT-SWAP", r.URL.Query().Get("instId"))
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.00012","fundingTime":"1741622400000","nextFundingTime":"1741651200000"}
		]}`))
	})
	mux.HandleFunc("/api/v5/market/candles", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			["1741600060000","80050","80200","80000","80100","300","3","240300","1"],
			["1741600000000","80000","80100","79900","80050","100","1","80050","1"]
		]}`))
	})
	mux.HandleFunc("/api/v5/public/funding-rate-history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0001","fundingTime":"1741593600000"},
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0002","fundingTime":"1741564800000"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGatewaySingularOnly(t *testing.T) {
	g := New(exchange.GatewayConfig{BaseURL: newTestServer(t).URL})
	assert.False(t, g.Capabilities().FundingRates)

	_, err := g.FetchFundingRates(context.Background(), nil)
	assert.ErrorIs(t, err, port.ErrNotSupported)

	markets, err := g.LoadMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	btc := markets["BTC/USDT:USDT"]
	assert.True(t, btc.Linear)
	assert.Equal(t, 0.01, btc.ContractSize)

	r, err := g.FetchFundingRate(context.Background(), "BTC/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, 0.00012, r.FundingRate)
	assert.Equal(t, int64(1741622400000), r.NextFundingTime)
}

func TestGatewayCandlesUseBaseVolume(t *testing.T) {
	g := New(exchange.GatewayConfig{BaseURL: newTestServer(t).URL})
	_, err := g.LoadMarkets(context.Background())
	require.NoError(t, err)

	candles, err := g.FetchOHLCV(context.Background(), "BTC/USDT:USDT", "1m", 60)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 1.0, candles[0].Volume)
	assert.Equal(t, 3.0, candles[1].Volume)

	hist, err := g.FetchFundingRateHistory(context.Background(), "BTC/USDT:USDT", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, int64(1741593600000), hist[1].Timestamp)
}
