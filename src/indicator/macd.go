package indicator

import (
	"demotrader/src/model"
)

// MACD aligns the fast EMA onto the slow EMA window and emits points on the signal window.
// Intermediate EMAs stay unrounded.
func MACD(bars []model.Bar, fast, slow, signal int) ([]MACDPoint, error) {
	if fast < 1 || slow < 1 || signal < 1 || fast >= slow {
		return nil, ErrInvalidParams
	}
	if len(bars) < slow+signal {
		return nil, insufficient("MACD", len(bars), slow+signal)
	}

	values := closes(bars)
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)

	// slowEMA[j] sits at bar index j+slow-1; fastEMA at that bar is offset by slow-fast.
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for j := range slowEMA {
		line[j] = fastEMA[j+offset] - slowEMA[j]
	}

	signalLine := emaSeries(line, signal)

	out := make([]MACDPoint, len(signalLine))
	for j, sig := range signalLine {
		m := line[j+signal-1]
		out[j] = MACDPoint{
			Time:      bars[j+signal-1+slow-1].Time,
			MACD:      round(m, priceDecimals),
			Signal:    round(sig, priceDecimals),
			Histogram: round(m-sig, priceDecimals),
		}
	}
	return out, nil
}
