package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"demotrader/src/model"

	"github.com/stretchr/testify/require"
)

func setupMockBinanceServer() *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`[
			[1499040000000, "0.01634790", "0.80000000", "0.01575800", "0.01577100", "148976.11427815", 1499644799999, "2434.19055334", 308, "1756.87402397", "28.46694368", "17928899.62484339"]
		]`))
		if err != nil {
			return
		}
	})
	return httptest.NewServer(handler)
}

func TestBinanceSourceSeries(t *testing.T) {
	server := setupMockBinanceServer()
	defer server.Close()

	src := NewBinanceSource(NewBinanceInstance(server.URL, 5*time.Second), "USDT", []string{"BTCUSD"}, 1000)

	from := time.Date(2017, 7, 3, 0, 0, 0, 0, time.UTC)
	bars, err := src.Series(context.Background(), "BTCUSD", model.Timeframe1h, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 1, "Should fetch exactly one OHLCV record")
	require.InDelta(t, 0.01634790, bars[0].Open, 0, "Open price should match")
	require.InDelta(t, 0.80000000, bars[0].High, 0)
	require.Equal(t, time.Unix(1499040000, 0).UTC(), bars[0].Time)
}

func TestBinanceSourceCoverage(t *testing.T) {
	src := NewBinanceSource(nil, "USDT", []string{"btcusd", " ETHUSD "}, 0)

	pair, ok := src.Pair("ETHUSD")
	require.True(t, ok)
	require.Equal(t, "ETH_USDT", pair.String())

	_, ok = src.Pair("EURUSD")
	require.False(t, ok)

	_, err := src.Quote(context.Background(), "EURUSD")
	require.ErrorIs(t, err, ErrNotCovered)

	_, err = src.Series(context.Background(), "EURUSD", model.Timeframe1h, time.Now(), time.Now())
	require.ErrorIs(t, err, ErrNotCovered)
}
