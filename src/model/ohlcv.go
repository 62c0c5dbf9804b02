package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidTimeframe = errors.New("invalid timeframe. allowed: 1m,5m,15m,30m,1h,4h,1d")

type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe1d:  24 * time.Hour,
}

func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	return tf, nil
}

// Duration returns the bar width, or zero for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Bar is one OHLC candle. Time is the bucket open in UTC.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// OHLCVBar is the persisted form of a Bar, filled by the ohlcv_sync command.
type OHLCVBar struct {
	ID        uint            `gorm:"primaryKey"`
	Symbol    string          `json:"symbol"    gorm:"type:varchar(20);not null;uniqueIndex:ux_ohlcv_bars_symbol_tf_datetime,priority:1"`
	Timeframe Timeframe       `json:"timeframe" gorm:"type:varchar(5);not null;uniqueIndex:ux_ohlcv_bars_symbol_tf_datetime,priority:2"`
	Datetime  time.Time       `json:"datetime"  gorm:"not null;uniqueIndex:ux_ohlcv_bars_symbol_tf_datetime,priority:3;index:idx_ohlcv_bars_datetime"`
	Open      decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High      decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low       decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close     decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume    decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (OHLCVBar) TableName() string {
	return "ohlcv_bars"
}

func (o OHLCVBar) ToBar() Bar {
	return Bar{
		Time:   o.Datetime.UTC(),
		Open:   o.Open.InexactFloat64(),
		High:   o.High.InexactFloat64(),
		Low:    o.Low.InexactFloat64(),
		Close:  o.Close.InexactFloat64(),
		Volume: o.Volume.InexactFloat64(),
	}
}

func NewOHLCVBar(symbol string, tf Timeframe, b Bar) OHLCVBar {
	return OHLCVBar{
		Symbol:    symbol,
		Timeframe: tf,
		Datetime:  b.Time.UTC(),
		Open:      decimal.NewFromFloat(b.Open),
		High:      decimal.NewFromFloat(b.High),
		Low:       decimal.NewFromFloat(b.Low),
		Close:     decimal.NewFromFloat(b.Close),
		Volume:    decimal.NewFromFloat(b.Volume),
	}
}
