package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"demotrader/src/indicator"
	"demotrader/src/model"
	"demotrader/src/price"
)

type quoter interface {
	CurrentQuotes(ctx context.Context, symbols []string) (map[string]price.Quote, error)
}

type seriesReader interface {
	OHLC(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error)
}

const defaultChartBars = 100

// PricesHandler returns current quotes for ?instruments=EURUSD,GBPUSD.
func PricesHandler(prices quoter, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbols := symbolsParam(r.URL.Query().Get("instruments"))
		if len(symbols) == 0 {
			writeMessage(w, http.StatusBadRequest, "instruments is required")
			return
		}

		quotes, err := prices.CurrentQuotes(r.Context(), symbols)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"prices":    quotes,
			"timestamp": now().Unix(),
		})
	}
}

type chartQuery struct {
	symbol    string
	timeframe model.Timeframe
	from, to  time.Time
}

// parseChartQuery reads symbol, timeframe (default 1h) and an RFC3339 from/to window.
// Without from the window covers the last 100 bars.
func parseChartQuery(r *http.Request, now func() time.Time) (chartQuery, string) {
	q := r.URL.Query()

	symbols := symbolsParam(q.Get("symbol"))
	if len(symbols) != 1 {
		return chartQuery{}, "symbol is required"
	}

	rawTF := q.Get("timeframe")
	if rawTF == "" {
		rawTF = string(model.Timeframe1h)
	}
	tf, err := model.ParseTimeframe(rawTF)
	if err != nil {
		return chartQuery{}, err.Error()
	}

	to := now().UTC()
	if raw := q.Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			return chartQuery{}, "invalid to"
		}
	}

	from := to.Add(-defaultChartBars * tf.Duration())
	if raw := q.Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			return chartQuery{}, "invalid from"
		}
	}

	return chartQuery{symbol: symbols[0], timeframe: tf, from: from.UTC(), to: to.UTC()}, ""
}

// ChartDataHandler returns OHLC bars for a symbol and timeframe.
func ChartDataHandler(series seriesReader, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, problem := parseChartQuery(r, now)
		if problem != "" {
			writeMessage(w, http.StatusBadRequest, problem)
			return
		}

		bars, err := series.OHLC(r.Context(), query.symbol, query.timeframe, query.from, query.to)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":    query.symbol,
			"timeframe": query.timeframe,
			"bars":      bars,
		})
	}
}

// IndicatorHandler computes ?indicator= over the chart window.
func IndicatorHandler(series seriesReader, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, problem := parseChartQuery(r, now)
		if problem != "" {
			writeMessage(w, http.StatusBadRequest, problem)
			return
		}

		kind, err := indicator.ParseKind(r.URL.Query().Get("indicator"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		params, ok := indicatorParams(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "indicator parameters must be positive numbers")
			return
		}

		bars, err := series.OHLC(r.Context(), query.symbol, query.timeframe, query.from, query.to)
		if err != nil {
			writeError(w, r, err)
			return
		}

		result, err := indicator.Calculate(kind, bars, params)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":    query.symbol,
			"timeframe": query.timeframe,
			"indicator": result,
		})
	}
}

func indicatorParams(r *http.Request) (indicator.Params, bool) {
	var p indicator.Params
	var ok bool

	if p.Period, ok = positiveIntParam(r, "period", 0); !ok {
		return p, false
	}
	if p.Fast, ok = positiveIntParam(r, "fast", 0); !ok {
		return p, false
	}
	if p.Slow, ok = positiveIntParam(r, "slow", 0); !ok {
		return p, false
	}
	if p.Signal, ok = positiveIntParam(r, "signal", 0); !ok {
		return p, false
	}
	if raw := r.URL.Query().Get("deviations"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return p, false
		}
		p.Deviations = v
	}
	return p, true
}
