package price

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"demotrader/src/model"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
)

var binancePeriods = map[model.Timeframe]goex.KlinePeriod{
	model.Timeframe1m:  goex.KLINE_PERIOD_1MIN,
	model.Timeframe5m:  goex.KLINE_PERIOD_5MIN,
	model.Timeframe15m: goex.KLINE_PERIOD_15MIN,
	model.Timeframe30m: goex.KLINE_PERIOD_30MIN,
	model.Timeframe1h:  goex.KLINE_PERIOD_1H,
	model.Timeframe4h:  goex.KLINE_PERIOD_4H,
	model.Timeframe1d:  goex.KLINE_PERIOD_1DAY,
}

// BinanceSource quotes crypto instruments from the Binance public market data API.
type BinanceSource struct {
	api        goex.API
	quoteAsset string
	symbols    map[string]struct{}
	limit      int
}

func NewBinanceInstance(endpoint string, timeout time.Duration) *binance.Binance {
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: timeout},
		Endpoint:   endpoint,
	}
	return binance.NewWithConfig(apiConfig)
}

func NewBinanceSource(api goex.API, quoteAsset string, symbols []string, limit int) *BinanceSource {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	if limit <= 0 {
		limit = 1000
	}
	return &BinanceSource{api: api, quoteAsset: quoteAsset, symbols: set, limit: limit}
}

func (b *BinanceSource) Name() string { return "binance" }

// Pair maps BTCUSD to BTC/<quote asset>.
func (b *BinanceSource) Pair(symbol string) (goex.CurrencyPair, bool) {
	s := strings.ToUpper(symbol)
	if _, ok := b.symbols[s]; !ok || !strings.HasSuffix(s, "USD") || len(s) <= 3 {
		return goex.CurrencyPair{}, false
	}
	base := strings.TrimSuffix(s, "USD")
	return goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: b.quoteAsset}), true
}

func (b *BinanceSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	pair, ok := b.Pair(symbol)
	if !ok {
		return Quote{}, ErrNotCovered
	}

	ticker, err := callWithContext(ctx, func() (*goex.Ticker, error) {
		return b.api.GetTicker(pair)
	})
	if err != nil {
		return Quote{}, fmt.Errorf("%w: binance ticker %s: %v", ErrUpstreamUnavailable, pair, err)
	}
	if ticker == nil || ticker.Buy <= 0 || ticker.Sell <= 0 {
		return Quote{}, fmt.Errorf("%w: binance ticker %s has no book", ErrUpstreamUnavailable, pair)
	}

	return Quote{
		Symbol:    strings.ToUpper(symbol),
		Bid:       decimal.NewFromFloat(ticker.Buy).Round(priceDecimals),
		Ask:       decimal.NewFromFloat(ticker.Sell).Round(priceDecimals),
		Timestamp: time.Now().UTC(),
		Source:    b.Name(),
	}, nil
}

func (b *BinanceSource) Series(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	pair, ok := b.Pair(symbol)
	if !ok {
		return nil, ErrNotCovered
	}
	period, ok := binancePeriods[tf]
	if !ok {
		return nil, model.ErrInvalidTimeframe
	}

	size := int(to.Sub(from)/tf.Duration()) + 1
	if size > b.limit {
		size = b.limit
	}

	klines, err := b.Klines(ctx, pair, period, size, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		bar := KlineToBar(k)
		if bar.Time.Before(from) || bar.Time.After(to) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// Klines fetches raw klines between from and to.
func (b *BinanceSource) Klines(
	ctx context.Context,
	pair goex.CurrencyPair,
	period goex.KlinePeriod,
	size int,
	from, to time.Time,
) ([]goex.Kline, error) {
	const millis = 1000
	klines, err := callWithContext(ctx, func() ([]goex.Kline, error) {
		return b.api.GetKlineRecords(
			pair,
			period,
			size,
			goex.OptionalParameter{}.
				Optional("startTime", from.Unix()*millis).
				Optional("endTime", to.Unix()*millis),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: binance klines %s: %v", ErrUpstreamUnavailable, pair, err)
	}
	return klines, nil
}

func KlineToBar(k goex.Kline) model.Bar {
	return model.Bar{
		Time:   time.Unix(k.Timestamp, 0).UTC(),
		Open:   k.Open,
		High:   k.High,
		Low:    k.Low,
		Close:  k.Close,
		Volume: k.Vol,
	}
}

// BinancePeriod maps a timeframe to the goex kline period.
func BinancePeriod(tf model.Timeframe) (goex.KlinePeriod, bool) {
	p, ok := binancePeriods[tf]
	return p, ok
}
