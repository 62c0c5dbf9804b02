package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"demotrader/src/model"
	"demotrader/src/price"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) }

type mockQuoter struct {
	symbols []string
}

func (m *mockQuoter) CurrentQuotes(ctx context.Context, symbols []string) (map[string]price.Quote, error) {
	m.symbols = symbols
	out := map[string]price.Quote{}
	for _, s := range symbols {
		out[s] = price.Quote{Symbol: s, Bid: decimal.RequireFromString("1.1"), Ask: decimal.RequireFromString("1.1002")}
	}
	return out, nil
}

type mockSeries struct {
	bars      []model.Bar
	err       error
	symbol    string
	tf        model.Timeframe
	from, to  time.Time
	callCount int
}

func (m *mockSeries) OHLC(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	m.callCount++
	m.symbol, m.tf, m.from, m.to = symbol, tf, from, to
	return m.bars, m.err
}

func closesToBars(closes ...float64) []model.Bar {
	out := make([]model.Bar, 0, len(closes))
	start := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out = append(out, model.Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c})
	}
	return out
}

func TestPricesHandler(t *testing.T) {
	q := &mockQuoter{}
	handler := PricesHandler(q, fixedNow)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/prices?instruments=eurusd,%20GBPUSD,EURUSD,", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, q.symbols)

	var resp struct {
		Prices    map[string]price.Quote `json:"prices"`
		Timestamp int64                  `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Prices, 2)
	assert.Equal(t, fixedNow().Unix(), resp.Timestamp)
}

func TestChartDataHandler(t *testing.T) {
	series := &mockSeries{bars: closesToBars(1, 2, 3)}
	handler := ChartDataHandler(series, fixedNow)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/charts/data?symbol=EURUSD&timeframe=2h", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/charts/data?timeframe=1h", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, series.callCount)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/charts/data?symbol=eurusd&timeframe=15m", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "EURUSD", series.symbol)
	assert.Equal(t, model.Timeframe15m, series.tf)
	assert.Equal(t, fixedNow(), series.to)
	assert.Equal(t, fixedNow().Add(-100*15*time.Minute), series.from)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/api/charts/data?symbol=EURUSD&from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.Timeframe1h, series.tf)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), series.from)

	series.err = price.ErrInvalidRange
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/api/charts/data?symbol=EURUSD&from=2024-03-03T00:00:00Z&to=2024-03-02T00:00:00Z", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIndicatorHandler(t *testing.T) {
	series := &mockSeries{bars: closesToBars(10, 11, 12, 13, 14)}
	handler := IndicatorHandler(series, fixedNow)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"unsupported kind", "symbol=EURUSD&indicator=vwap", http.StatusBadRequest},
		{"bad period", "symbol=EURUSD&indicator=sma&period=-2", http.StatusBadRequest},
		{"bad deviations", "symbol=EURUSD&indicator=bollinger&deviations=x", http.StatusBadRequest},
		{"not enough bars", "symbol=EURUSD&indicator=sma&period=10", http.StatusUnprocessableEntity},
		{"invalid macd params", "symbol=EURUSD&indicator=macd&fast=5&slow=3&signal=2", http.StatusBadRequest},
		{"sma", "symbol=EURUSD&indicator=SMA&period=3", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/charts/indicator?"+tt.query, nil))
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/charts/indicator?symbol=EURUSD&indicator=sma&period=3", nil))
	assert.True(t, strings.Contains(rr.Body.String(), `"sma"`), rr.Body.String())
}

func TestPriceStreamHandler(t *testing.T) {
	srv := httptest.NewServer(PriceStreamHandler(&mockQuoter{}, 10*time.Millisecond))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/prices?instruments=EURUSD,BTCUSD"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var frame struct {
			Prices map[string]price.Quote `json:"prices"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Contains(t, frame.Prices, "EURUSD")
		assert.Contains(t, frame.Prices, "BTCUSD")
	}
}

func TestPriceStreamHandler_RejectsMissingSymbols(t *testing.T) {
	rr := httptest.NewRecorder()
	PriceStreamHandler(&mockQuoter{}, time.Second).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/prices", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
