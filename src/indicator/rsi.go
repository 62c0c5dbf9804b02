package indicator

import (
	"demotrader/src/model"
)

// RSI uses Wilder's smoothing. The first point is anchored at index period.
func RSI(bars []model.Bar, period int) ([]Point, error) {
	if period < 1 {
		return nil, ErrInvalidParams
	}
	if len(bars) < period+1 {
		return nil, insufficient("RSI", len(bars), period+1)
	}

	values := closes(bars)

	changes := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		changes = append(changes, values[i]-values[i-1])
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		gain, loss := split(changes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]Point, 0, len(values)-period)
	out = append(out, Point{Time: bars[period].Time, Value: round(rsiValue(avgGain, avgLoss), rsiDecimals)})

	for i := period + 1; i < len(values); i++ {
		gain, loss := split(changes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, Point{Time: bars[i].Time, Value: round(rsiValue(avgGain, avgLoss), rsiDecimals)})
	}

	return out, nil
}

// split separates a delta into a gain and a positive loss magnitude.
func split(delta float64) (float64, float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
