package price

import (
	"testing"
	"time"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticQuoteStaysNearBase(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSynthetic(100, func() time.Time { return now })

	base := decimal.NewFromFloat(BasePrice("EURUSD"))
	lower := base.Mul(decimal.RequireFromString("0.997"))
	upper := base.Mul(decimal.RequireFromString("1.003"))

	for i := 0; i < 50; i++ {
		q := s.Quote("EURUSD")
		require.Equal(t, SourceSynthetic, q.Source)
		require.True(t, q.Bid.LessThan(q.Ask), "bid %s ask %s", q.Bid, q.Ask)
		require.True(t, q.Bid.GreaterThan(lower), q.Bid.String())
		require.True(t, q.Ask.LessThan(upper), q.Ask.String())
		require.LessOrEqual(t, -q.Bid.Exponent(), int32(5))
		require.Equal(t, now, q.Timestamp)
	}
}

func TestBasePriceDefaults(t *testing.T) {
	assert.Equal(t, 62000.0, BasePrice("btcusd"))
	assert.Equal(t, 2300.0, BasePrice("XAUUSD"))
	assert.Equal(t, 1.0, BasePrice("UNKNOWN"))
}

func TestSyntheticSeriesIsDeterministic(t *testing.T) {
	s := NewSynthetic(1000, nil)
	from := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(59 * time.Minute)

	first := s.Series("EURUSD", model.Timeframe1m, from, to)
	second := s.Series("EURUSD", model.Timeframe1m, from, to)

	require.Len(t, first, 60)
	require.Equal(t, first, second)
	assert.Equal(t, from, first[0].Time)
	assert.Equal(t, to, first[59].Time)

	for i, b := range first {
		assert.GreaterOrEqual(t, b.High, b.Open, "bar %d", i)
		assert.GreaterOrEqual(t, b.High, b.Close, "bar %d", i)
		assert.LessOrEqual(t, b.Low, b.Open, "bar %d", i)
		assert.LessOrEqual(t, b.Low, b.Close, "bar %d", i)
		assert.GreaterOrEqual(t, b.Volume, 100.0)
		assert.LessOrEqual(t, b.Volume, 1000.0)
		if i > 0 {
			assert.Equal(t, first[i-1].Close, b.Open, "bar %d opens at the previous close", i)
		}
	}

	other := s.Series("GBPUSD", model.Timeframe1m, from, to)
	require.NotEqual(t, first[0].Close, other[0].Close)
}

func TestSyntheticSeriesAlignsAndCaps(t *testing.T) {
	s := NewSynthetic(10, nil)
	from := time.Date(2024, 5, 1, 10, 2, 30, 0, time.UTC)
	to := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)

	bars := s.Series("BTCUSD", model.Timeframe5m, from, to)
	require.Len(t, bars, 10)
	assert.Equal(t, to, bars[9].Time)
	for _, b := range bars {
		assert.Zero(t, b.Time.Unix()%300)
	}

	assert.Empty(t, s.Series("BTCUSD", model.Timeframe5m, to, from))
	assert.Empty(t, s.Series("BTCUSD", model.Timeframe("2m"), from, to))
}
