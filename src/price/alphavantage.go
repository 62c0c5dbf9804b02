package price

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"demotrader/src/model"
	"demotrader/src/repository"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const (
	alphaVantageIntradayLayout = "2006-01-02 15:04:05"
	alphaVantageDailyLayout    = "2006-01-02"
)

var alphaVantageSpread = decimal.RequireFromString("0.0002")

// alphaVantageIntervals maps timeframes to FX_INTRADAY intervals. 4h has no native interval and is built from 60min.
var alphaVantageIntervals = map[model.Timeframe]string{
	model.Timeframe1m:  "1min",
	model.Timeframe5m:  "5min",
	model.Timeframe15m: "15min",
	model.Timeframe30m: "30min",
	model.Timeframe1h:  "60min",
	model.Timeframe4h:  "60min",
}

// AlphaVantageSource reads FX rates and series from the Alpha Vantage query API.
type AlphaVantageSource struct {
	http    *resty.Client
	apiKey  string
	limiter ratelimit.Limiter
}

type alphaVantageRate struct {
	Rate struct {
		Value string `json:"5. Exchange Rate"`
	} `json:"Realtime Currency Exchange Rate"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

type alphaVantageBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewAlphaVantageSource(cfg Config) *AlphaVantageSource {
	perMinute := cfg.AlphaVantagePerMinute
	if perMinute <= 0 {
		perMinute = 5
	}

	httpClient := resty.New().
		SetBaseURL(cfg.AlphaVantageURL).
		SetTimeout(cfg.UpstreamTimeout).
		SetRetryCount(cfg.AlphaVantageRetries).
		SetRetryWaitTime(cfg.AlphaVantageRetryWait).
		SetRetryMaxWaitTime(4 * cfg.AlphaVantageRetryWait).
		AddRetryCondition(isRetryableResp)

	return &AlphaVantageSource{
		http:    httpClient,
		apiKey:  cfg.AlphaVantageKey,
		limiter: ratelimit.New(perMinute, ratelimit.Per(time.Minute)),
	}
}

func (a *AlphaVantageSource) Name() string { return "alphavantage" }

func splitFXSymbol(symbol string) (string, string, bool) {
	s := strings.ToUpper(symbol)
	if len(s) != 6 {
		return "", "", false
	}
	return s[:3], s[3:], true
}

// wait takes a rate limiter slot, giving up when ctx ends first.
func (a *AlphaVantageSource) wait(ctx context.Context) error {
	_, err := callWithContext(ctx, func() (time.Time, error) {
		return a.limiter.Take(), nil
	})
	return err
}

func (a *AlphaVantageSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	from, to, ok := splitFXSymbol(symbol)
	if !ok || a.apiKey == "" {
		return Quote{}, ErrNotCovered
	}
	if err := a.wait(ctx); err != nil {
		return Quote{}, err
	}

	var result alphaVantageRate
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":      "CURRENCY_EXCHANGE_RATE",
			"from_currency": from,
			"to_currency":   to,
			"apikey":        a.apiKey,
		}).
		SetResult(&result).
		Get("/query")
	if err != nil {
		return Quote{}, fmt.Errorf("%w: alphavantage rate %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	if resp.StatusCode() != 200 {
		return Quote{}, fmt.Errorf("%w: alphavantage rate %s: HTTP %d", ErrUpstreamUnavailable, symbol, resp.StatusCode())
	}
	if msg := firstNonEmpty(result.ErrorMessage, result.Note, result.Information); msg != "" {
		return Quote{}, fmt.Errorf("%w: alphavantage rate %s: %s", ErrUpstreamUnavailable, symbol, msg)
	}

	rate, err := decimal.NewFromString(result.Rate.Value)
	if err != nil || !rate.IsPositive() {
		return Quote{}, fmt.Errorf("%w: alphavantage rate %s: bad exchange rate %q", ErrUpstreamUnavailable, symbol, result.Rate.Value)
	}

	return quoteAround(strings.ToUpper(symbol), rate, alphaVantageSpread, time.Now(), a.Name()), nil
}

func (a *AlphaVantageSource) Series(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	fromSym, toSym, ok := splitFXSymbol(symbol)
	if !ok || a.apiKey == "" {
		return nil, ErrNotCovered
	}

	params := map[string]string{
		"from_symbol": fromSym,
		"to_symbol":   toSym,
		"outputsize":  "full",
		"apikey":      a.apiKey,
	}

	var seriesKey, layout string
	if interval, ok := alphaVantageIntervals[tf]; ok {
		params["function"] = "FX_INTRADAY"
		params["interval"] = interval
		seriesKey = fmt.Sprintf("Time Series FX (%s)", interval)
		layout = alphaVantageIntradayLayout
	} else if tf == model.Timeframe1d {
		params["function"] = "FX_DAILY"
		seriesKey = "Time Series FX (Daily)"
		layout = alphaVantageDailyLayout
	} else {
		return nil, model.ErrInvalidTimeframe
	}

	if err := a.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("%w: alphavantage series %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: alphavantage series %s: HTTP %d", ErrUpstreamUnavailable, symbol, resp.StatusCode())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: alphavantage series %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	raw, ok := payload[seriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: alphavantage series %s: missing %q", ErrUpstreamUnavailable, symbol, seriesKey)
	}

	var rows map[string]alphaVantageBar
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: alphavantage series %s: %v", ErrUpstreamUnavailable, symbol, err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for stamp, row := range rows {
		at, err := time.ParseInLocation(layout, stamp, time.UTC)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"component": "AlphaVantageSource",
				"symbol":    symbol,
				"stamp":     stamp,
			}).Debug("Skipping bar with unparsable time")
			continue
		}
		if at.Before(from) || at.After(to) {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   at,
			Open:   parseFloat(row.Open),
			High:   parseFloat(row.High),
			Low:    parseFloat(row.Low),
			Close:  parseFloat(row.Close),
			Volume: parseFloat(row.Volume),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if tf == model.Timeframe4h {
		return repository.AggregateBars(bars, tf.Duration())
	}
	return bars, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
