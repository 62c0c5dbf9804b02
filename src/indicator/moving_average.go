package indicator

import (
	"demotrader/src/model"
)

// SMA emits one point per full window, anchored at index period-1.
func SMA(bars []model.Bar, period int) ([]Point, error) {
	if period < 1 {
		return nil, ErrInvalidParams
	}
	if len(bars) < period {
		return nil, insufficient("SMA", len(bars), period)
	}

	values := smaSeries(closes(bars), period)
	out := make([]Point, len(values))
	for j, v := range values {
		out[j] = Point{Time: bars[j+period-1].Time, Value: round(v, priceDecimals)}
	}
	return out, nil
}

// EMA is seeded with the SMA of the first period closes.
func EMA(bars []model.Bar, period int) ([]Point, error) {
	if period < 1 {
		return nil, ErrInvalidParams
	}
	if len(bars) < period {
		return nil, insufficient("EMA", len(bars), period)
	}

	values := emaSeries(closes(bars), period)
	out := make([]Point, len(values))
	for j, v := range values {
		out[j] = Point{Time: bars[j+period-1].Time, Value: round(v, priceDecimals)}
	}
	return out, nil
}

// smaSeries uses a running sum; the caller guarantees len(values) >= period.
func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, 0, len(values)-period+1)

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

func emaSeries(values []float64, period int) []float64 {
	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}
