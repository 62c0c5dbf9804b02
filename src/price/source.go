package price

import (
	"context"
	"time"

	"demotrader/src/model"
)

// QuoteSource is one upstream of current prices.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// SeriesSource is one upstream of OHLC bars. An empty result means "try the next source".
type SeriesSource interface {
	Name() string
	Series(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error)
}

// BarReader is the slice of the OHLCV repository the oracle reads.
type BarReader interface {
	FindRange(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error)
}

// StoredBars serves series persisted by the ohlcv_sync command.
type StoredBars struct {
	bars BarReader
}

func NewStoredBars(bars BarReader) *StoredBars {
	return &StoredBars{bars: bars}
}

func (s *StoredBars) Name() string { return "db" }

func (s *StoredBars) Series(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	return s.bars.FindRange(ctx, symbol, tf, from, to)
}

type callResult[T any] struct {
	value T
	err   error
}

// callWithContext runs a blocking call that has no context support and gives up when ctx ends.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn()
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
