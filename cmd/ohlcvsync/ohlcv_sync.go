package ohlcvsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/repository"

	"github.com/nntaoli-project/goex"
	logger "github.com/sirupsen/logrus"
)

var ErrUnsupportedSymbol = errors.New("symbol is not served by binance")

type barStore interface {
	Upsert(ctx context.Context, bars []model.OHLCVBar) error
	LatestDatetime(ctx context.Context, symbol string, tf model.Timeframe) (*time.Time, error)
}

// OHLCVSync copies Binance klines into the ohlcv_bars table.
type OHLCVSync struct {
	Log    *logger.Entry
	Repo   barStore
	Source *price.BinanceSource
	Config *Config

	now func() time.Time
}

func (o *OHLCVSync) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now().UTC()
}

func (o *OHLCVSync) Start(ctx context.Context) error {
	tf, err := model.ParseTimeframe(o.Config.Timeframe)
	if err != nil {
		return err
	}
	period, ok := price.BinancePeriod(tf)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrInvalidTimeframe, tf)
	}

	for _, symbol := range o.Config.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		saved, err := o.syncSymbol(ctx, symbol, tf, period)
		if err != nil {
			o.Log.WithError(err).WithField("symbol", symbol).Error("syncSymbol failed")
			return err
		}
		o.Log.WithFields(logger.Fields{
			"symbol":    symbol,
			"timeframe": tf,
			"bars":      saved,
		}).Info("OHLCV bars inserted or updated in database")
	}
	return nil
}

func (o *OHLCVSync) syncSymbol(ctx context.Context, symbol string, tf model.Timeframe, period goex.KlinePeriod) (int, error) {
	pair, ok := o.Source.Pair(symbol)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	start, end, err := o.determineStartPoint(ctx, symbol, tf)
	if err != nil {
		return 0, err
	}

	limit := o.Config.Limit
	if limit <= 0 {
		limit = 1000
	}

	saved := 0
	for !start.After(end) {
		klines, err := o.Source.Klines(ctx, pair, period, limit, start, end)
		if err != nil {
			return saved, err
		}

		rows := make([]model.OHLCVBar, 0, len(klines))
		last := start
		for _, k := range klines {
			bar := price.KlineToBar(k)
			if bar.Time.Before(start) || bar.Time.After(end) {
				continue
			}
			rows = append(rows, model.NewOHLCVBar(symbol, tf, bar))
			if bar.Time.After(last) {
				last = bar.Time
			}
		}

		if err := o.Repo.Upsert(ctx, rows); err != nil {
			return saved, err
		}
		saved += len(rows)

		if len(klines) < limit || len(rows) == 0 {
			break
		}
		start = last.Add(tf.Duration())
	}

	return saved, nil
}

// determineStartPoint resumes one bar before the newest stored bucket in auto mode,
// so the last (possibly partial) candle is refreshed.
func (o *OHLCVSync) determineStartPoint(ctx context.Context, symbol string, tf model.Timeframe) (time.Time, time.Time, error) {
	start := o.Config.StartDt.UTC()
	end := o.Config.EndDt.UTC()
	if o.Config.EndDt.IsZero() || o.Config.AutoMode {
		end = o.clock()
	}

	if !o.Config.AutoMode {
		return start, end, nil
	}

	latest, err := o.Repo.LatestDatetime(ctx, symbol, tf)
	if err != nil {
		o.Log.WithError(err).Error("Failed to query latest datetime")
		return time.Time{}, time.Time{}, err
	}
	if latest == nil {
		o.Log.
			WithField("StartDt", start.String()).
			WithField("EndDt", end.String()).
			Warn("no records found, start from the configured StartDt")
		return start, end, nil
	}

	start = latest.Add(-tf.Duration())
	o.Log.
		WithField("StartDt", start.String()).
		WithField("EndDt", end.String()).
		Info("determineStartPoint valid date found")
	return start, end, nil
}

// NewOHLCVSync wires the syncer against the repository and a Binance source built from price config.
func NewOHLCVSync(log *logger.Entry, repo *repository.OHLCVRepository, priceCfg price.Config, cfg *Config) *OHLCVSync {
	api := price.NewBinanceInstance(priceCfg.BinanceEndpoint, priceCfg.UpstreamTimeout)
	return &OHLCVSync{
		Log:    log,
		Repo:   repo,
		Source: price.NewBinanceSource(api, priceCfg.BinanceQuoteAsset, cfg.Symbols, cfg.Limit),
		Config: cfg,
	}
}
