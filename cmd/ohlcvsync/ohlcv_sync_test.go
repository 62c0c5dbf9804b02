package ohlcvsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"demotrader/src/database/dbtest"
	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func setupMockBinanceServer(calls *int32) *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[
			[1499040000000, "0.01634790", "0.80000000", "0.01575800", "0.01577100", "148976.11427815", 1499043599999, "2434.19055334", 308, "1756.87402397", "28.46694368", "17928899.62484339"]
		]`))
	})
	return httptest.NewServer(handler)
}

func newSync(t *testing.T, endpoint string, repo barStore, cfg *Config) *OHLCVSync {
	t.Helper()
	api := price.NewBinanceInstance(endpoint, time.Second)
	return &OHLCVSync{
		Log:    logrus.NewEntry(logrus.New()),
		Repo:   repo,
		Source: price.NewBinanceSource(api, "USDT", cfg.Symbols, cfg.Limit),
		Config: cfg,
	}
}

func TestOHLCVSync_StartStoresBars(t *testing.T) {
	var calls int32
	server := setupMockBinanceServer(&calls)
	defer server.Close()

	db := dbtest.Open(t)
	repo := repository.NewOHLCVRepositoryWithDB(db)

	cfg := &Config{
		StartDt:   time.Date(2017, 7, 2, 0, 0, 0, 0, time.UTC),
		EndDt:     time.Date(2017, 7, 4, 0, 0, 0, 0, time.UTC),
		Timeframe: "1h",
		Symbols:   []string{"BTCUSD"},
		Limit:     1000,
	}
	s := newSync(t, server.URL, repo, cfg)

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "a short page ends the paging loop")

	bars, err := repo.FindRange(context.Background(), "BTCUSD", model.Timeframe1h, cfg.StartDt, cfg.EndDt)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.True(t, bars[0].Time.Equal(time.Unix(1499040000, 0).UTC()))
	require.InDelta(t, 0.01634790, bars[0].Open, 1e-9)
	require.InDelta(t, 0.8, bars[0].High, 1e-9)

	// A second run upserts the same bucket instead of duplicating it.
	require.NoError(t, s.Start(context.Background()))
	var count int64
	require.NoError(t, db.Model(&model.OHLCVBar{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestOHLCVSync_UnsupportedSymbol(t *testing.T) {
	var calls int32
	server := setupMockBinanceServer(&calls)
	defer server.Close()

	cfg := &Config{Timeframe: "1h", Symbols: []string{"EURUSD"}, Limit: 10}
	s := &OHLCVSync{
		Log:    logrus.NewEntry(logrus.New()),
		Repo:   &stubStore{},
		Source: price.NewBinanceSource(price.NewBinanceInstance(server.URL, time.Second), "USDT", []string{"BTCUSD"}, 10),
		Config: cfg,
	}
	err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedSymbol)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestOHLCVSync_InvalidTimeframe(t *testing.T) {
	cfg := &Config{Timeframe: "2h", Symbols: []string{"BTCUSD"}}
	s := newSync(t, "http://127.0.0.1:1", &stubStore{}, cfg)
	require.ErrorIs(t, s.Start(context.Background()), model.ErrInvalidTimeframe)
}

type stubStore struct {
	latest *time.Time
	err    error
}

func (s *stubStore) Upsert(context.Context, []model.OHLCVBar) error { return nil }

func (s *stubStore) LatestDatetime(context.Context, string, model.Timeframe) (*time.Time, error) {
	return s.latest, s.err
}

func TestOHLCVSync_determineStartPoint(t *testing.T) {
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	configured := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		auto      bool
		latest    *time.Time
		endDt     time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"manual range", false, nil, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), configured, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"manual open end", false, nil, time.Time{}, configured, now},
		{"auto without data", true, nil, time.Time{}, configured, now},
		{"auto resumes one bar back", true, &latest, time.Time{}, latest.Add(-time.Hour), now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &OHLCVSync{
				Log:    logrus.NewEntry(logrus.New()),
				Repo:   &stubStore{latest: tt.latest},
				Config: &Config{StartDt: configured, EndDt: tt.endDt, AutoMode: tt.auto},
				now:    func() time.Time { return now },
			}
			start, end, err := s.determineStartPoint(context.Background(), "BTCUSD", model.Timeframe1h)
			require.NoError(t, err)
			require.Equal(t, tt.wantStart, start)
			require.Equal(t, tt.wantEnd, end)
		})
	}
}
