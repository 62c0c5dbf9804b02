// Package indicator computes technical indicators over an ascending OHLC series.
// Every function is pure: the same bars and params always give the same result.
package indicator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidParams    = errors.New("invalid indicator parameters")
)

// UnsupportedIndicatorError is returned for an unknown indicator kind.
type UnsupportedIndicatorError struct {
	Kind string
}

func (e *UnsupportedIndicatorError) Error() string {
	return fmt.Sprintf("unsupported indicator: %q", e.Kind)
}

type Kind string

const (
	KindSMA       Kind = "sma"
	KindEMA       Kind = "ema"
	KindBollinger Kind = "bollinger"
	KindMACD      Kind = "macd"
	KindRSI       Kind = "rsi"
)

// ParseKind accepts the kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSMA, KindEMA, KindBollinger, KindMACD, KindRSI:
		return k, nil
	default:
		return "", &UnsupportedIndicatorError{Kind: s}
	}
}

const (
	DefaultPeriod          = 14
	DefaultBollingerPeriod = 20
	DefaultDeviations      = 2.0
	DefaultFast            = 12
	DefaultSlow            = 26
	DefaultSignal          = 9

	priceDecimals = 5
	rsiDecimals   = 2
)

// Params holds every indicator knob. Zero values fall back to the defaults of the kind.
type Params struct {
	Period     int     `json:"period,omitempty"`
	Deviations float64 `json:"deviations,omitempty"`
	Fast       int     `json:"fast,omitempty"`
	Slow       int     `json:"slow,omitempty"`
	Signal     int     `json:"signal,omitempty"`
}

func (p Params) withDefaults(kind Kind) Params {
	if p.Period == 0 {
		if kind == KindBollinger {
			p.Period = DefaultBollingerPeriod
		} else {
			p.Period = DefaultPeriod
		}
	}
	if p.Deviations == 0 {
		p.Deviations = DefaultDeviations
	}
	if p.Fast == 0 {
		p.Fast = DefaultFast
	}
	if p.Slow == 0 {
		p.Slow = DefaultSlow
	}
	if p.Signal == 0 {
		p.Signal = DefaultSignal
	}
	return p
}

func (p Params) validate(kind Kind) error {
	switch kind {
	case KindMACD:
		if p.Fast < 1 || p.Slow < 1 || p.Signal < 1 {
			return fmt.Errorf("%w: macd periods must be positive", ErrInvalidParams)
		}
		if p.Fast >= p.Slow {
			return fmt.Errorf("%w: fast period %d must be below slow period %d", ErrInvalidParams, p.Fast, p.Slow)
		}
	case KindBollinger:
		if p.Period < 1 {
			return fmt.Errorf("%w: period must be positive", ErrInvalidParams)
		}
		if p.Deviations <= 0 {
			return fmt.Errorf("%w: deviations must be positive", ErrInvalidParams)
		}
	default:
		if p.Period < 1 {
			return fmt.Errorf("%w: period must be positive", ErrInvalidParams)
		}
	}
	return nil
}

type Point struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
}

type BandPoint struct {
	Time   time.Time       `json:"time"`
	Upper  decimal.Decimal `json:"upper"`
	Middle decimal.Decimal `json:"middle"`
	Lower  decimal.Decimal `json:"lower"`
}

type MACDPoint struct {
	Time      time.Time       `json:"time"`
	MACD      decimal.Decimal `json:"macd"`
	Signal    decimal.Decimal `json:"signal"`
	Histogram decimal.Decimal `json:"histogram"`
}

// Result carries one of Values, Bands or MACD depending on Kind.
type Result struct {
	Kind   Kind        `json:"kind"`
	Params Params      `json:"params"`
	Values []Point     `json:"values,omitempty"`
	Bands  []BandPoint `json:"bands,omitempty"`
	MACD   []MACDPoint `json:"macd,omitempty"`
}

// Calculate dispatches to the indicator named by kind.
func Calculate(kind Kind, bars []model.Bar, params Params) (*Result, error) {
	switch kind {
	case KindSMA, KindEMA, KindBollinger, KindMACD, KindRSI:
	default:
		return nil, &UnsupportedIndicatorError{Kind: string(kind)}
	}

	params = params.withDefaults(kind)
	if err := params.validate(kind); err != nil {
		return nil, err
	}

	res := &Result{Kind: kind, Params: params}
	var err error

	switch kind {
	case KindSMA:
		res.Values, err = SMA(bars, params.Period)
	case KindEMA:
		res.Values, err = EMA(bars, params.Period)
	case KindBollinger:
		res.Bands, err = Bollinger(bars, params.Period, params.Deviations)
	case KindMACD:
		res.MACD, err = MACD(bars, params.Fast, params.Slow, params.Signal)
	case KindRSI:
		res.Values, err = RSI(bars, params.Period)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

func insufficient(name string, have, need int) error {
	return fmt.Errorf("%w: %d bars to calculate %s, need %d", ErrInsufficientData, have, name, need)
}
