package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"demotrader/src/model"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service is the price oracle. Upstream failures are logged and replaced by synthetic data;
// the only error CurrentQuote returns is the caller's own context error.
type Service struct {
	quoteSources  []QuoteSource
	seriesSources []SeriesSource
	synthetic     *Synthetic
	quotes        *ttlCache[Quote]
	series        *ttlCache[[]model.Bar]
	group         singleflight.Group
	timeout       time.Duration
	log           *logger.Entry
}

type Options struct {
	QuoteSources  []QuoteSource
	SeriesSources []SeriesSource
	Now           func() time.Time
}

func NewService(cfg Config, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		quoteSources:  opts.QuoteSources,
		seriesSources: opts.SeriesSources,
		synthetic:     NewSynthetic(cfg.MaxSyntheticBars, now),
		quotes:        newTTLCache[Quote](cfg.QuoteCacheTTL, now),
		series:        newTTLCache[[]model.Bar](cfg.OHLCCacheTTL, now),
		timeout:       cfg.UpstreamTimeout,
		log:           logger.WithField("component", "price.Service"),
	}
}

// NewDefaultService chains stored bars, Binance and Alpha Vantage as configured.
func NewDefaultService(cfg Config, bars BarReader) *Service {
	var opts Options

	if bars != nil {
		opts.SeriesSources = append(opts.SeriesSources, NewStoredBars(bars))
	}

	if cfg.BinanceEnabled {
		bn := NewBinanceSource(
			NewBinanceInstance(cfg.BinanceEndpoint, cfg.UpstreamTimeout),
			cfg.BinanceQuoteAsset,
			cfg.BinanceSymbols,
			cfg.BinanceKlineLimit,
		)
		opts.QuoteSources = append(opts.QuoteSources, bn)
		opts.SeriesSources = append(opts.SeriesSources, bn)
	}

	if cfg.AlphaVantageKey != "" {
		av := NewAlphaVantageSource(cfg)
		opts.QuoteSources = append(opts.QuoteSources, av)
		opts.SeriesSources = append(opts.SeriesSources, av)
	}

	return NewService(cfg, opts)
}

// CurrentQuote returns a cached or freshly fetched quote. Concurrent misses for a symbol share one fetch.
func (s *Service) CurrentQuote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if q, ok := s.quotes.Get(symbol); ok {
		return q, nil
	}

	ch := s.group.DoChan("quote:"+symbol, func() (interface{}, error) {
		q := s.fetchQuote(context.WithoutCancel(ctx), symbol)
		s.quotes.Set(symbol, q)
		return q, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Quote), nil
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	}
}

// CurrentQuotes fetches several quotes in parallel, keyed by upper-case symbol.
func (s *Service) CurrentQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			q, err := s.CurrentQuote(gctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			out[q.Symbol] = q
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) fetchQuote(ctx context.Context, symbol string) Quote {
	for _, src := range s.quoteSources {
		q, err := s.quoteFrom(ctx, src, symbol)
		if err == nil {
			return q
		}
		if errors.Is(err, ErrNotCovered) {
			continue
		}
		s.log.WithFields(map[string]interface{}{
			"op":     "CurrentQuote",
			"source": src.Name(),
			"symbol": symbol,
		}).WithError(err).Warn("Quote upstream failed, trying next source")
	}

	return s.synthetic.Quote(symbol)
}

func (s *Service) quoteFrom(ctx context.Context, src QuoteSource, symbol string) (Quote, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()

	q, err := src.Quote(cctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	q.Symbol = symbol
	return q, nil
}

// OHLC returns ascending bars in [from, to]. The returned slice is shared and must not be modified.
func (s *Service) OHLC(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	if tf.Duration() == 0 {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTimeframe, tf)
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := fmt.Sprintf("%s|%s|%d|%d", symbol, tf, from.Unix(), to.Unix())

	if bars, ok := s.series.Get(key); ok {
		return bars, nil
	}

	ch := s.group.DoChan("series:"+key, func() (interface{}, error) {
		bars := s.fetchSeries(context.WithoutCancel(ctx), symbol, tf, from, to)
		s.series.Set(key, bars)
		return bars, nil
	})

	select {
	case res := <-ch:
		return res.Val.([]model.Bar), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetchSeries(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) []model.Bar {
	for _, src := range s.seriesSources {
		cctx, cancel := s.bounded(ctx)
		bars, err := src.Series(cctx, symbol, tf, from, to)
		cancel()

		if err == nil && len(bars) > 0 {
			return bars
		}
		if err != nil && !errors.Is(err, ErrNotCovered) {
			s.log.WithFields(map[string]interface{}{
				"op":        "OHLC",
				"source":    src.Name(),
				"symbol":    symbol,
				"timeframe": tf,
			}).WithError(err).Warn("Series upstream failed, trying next source")
		}
	}

	return s.synthetic.Series(symbol, tf, from, to)
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
