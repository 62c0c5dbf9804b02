package indicator

import (
	"math"

	"demotrader/src/model"
)

// Bollinger uses the population standard deviation of the SMA window.
func Bollinger(bars []model.Bar, period int, deviations float64) ([]BandPoint, error) {
	if period < 1 || deviations <= 0 {
		return nil, ErrInvalidParams
	}
	if len(bars) < period {
		return nil, insufficient("Bollinger", len(bars), period)
	}

	values := closes(bars)
	middles := smaSeries(values, period)

	out := make([]BandPoint, len(middles))
	for j, middle := range middles {
		window := values[j : j+period]

		variance := 0.0
		for _, v := range window {
			d := v - middle
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))

		out[j] = BandPoint{
			Time:   bars[j+period-1].Time,
			Upper:  round(middle+deviations*std, priceDecimals),
			Middle: round(middle, priceDecimals),
			Lower:  round(middle-deviations*std, priceDecimals),
		}
	}
	return out, nil
}
