package ohlcvsync

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StartDt   time.Time `envconfig:"START_DATE" default:"2024-01-01T00:00:00Z"`
	EndDt     time.Time `envconfig:"END_DATE"`
	Timeframe string    `envconfig:"TIMEFRAME" default:"1h"`
	AutoMode  bool      `envconfig:"AUTO_MODE" default:"false"`
	Symbols   []string  `envconfig:"SYNC_SYMBOLS" default:"BTCUSD,ETHUSD"`
	Limit     int       `envconfig:"LIMIT" default:"1000"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
