package indicators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"demotrader/src/indicator"
	"demotrader/src/model"
)

type seriesReader interface {
	OHLC(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error)
}

// Options select the series and the indicator to print.
type Options struct {
	Symbol    string
	Timeframe string
	Kind      string
	Bars      int
	Params    indicator.Params
}

type output struct {
	Symbol    string            `json:"symbol"`
	Timeframe model.Timeframe   `json:"timeframe"`
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Result    *indicator.Result `json:"result"`
}

// Run calculates one indicator over the last opts.Bars bars ending at now and writes it as JSON.
func Run(ctx context.Context, prices seriesReader, opts Options, now time.Time, out io.Writer) error {
	symbol := strings.ToUpper(strings.TrimSpace(opts.Symbol))
	if symbol == "" {
		return errors.New("symbol is required")
	}

	tf, err := model.ParseTimeframe(opts.Timeframe)
	if err != nil {
		return err
	}

	kind, err := indicator.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	if opts.Bars <= 0 {
		return fmt.Errorf("bars must be positive, got %d", opts.Bars)
	}

	to := now.UTC().Truncate(tf.Duration())
	from := to.Add(-time.Duration(opts.Bars-1) * tf.Duration())

	bars, err := prices.OHLC(ctx, symbol, tf, from, to)
	if err != nil {
		return err
	}

	res, err := indicator.Calculate(kind, bars, opts.Params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Symbol:    symbol,
		Timeframe: tf,
		From:      from,
		To:        to,
		Result:    res,
	})
}
