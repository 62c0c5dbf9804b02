package price

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	QuoteCacheTTL    time.Duration `envconfig:"QUOTE_CACHE_TTL" default:"5s"`
	OHLCCacheTTL     time.Duration `envconfig:"OHLC_CACHE_TTL" default:"60s"`
	UpstreamTimeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"3s"`
	MaxSyntheticBars int           `envconfig:"MAX_SYNTHETIC_BARS" default:"5000"`

	BinanceEnabled    bool     `envconfig:"BINANCE_ENABLED" default:"true"`
	BinanceEndpoint   string   `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	BinanceQuoteAsset string   `envconfig:"BINANCE_QUOTE_ASSET" default:"USDT"`
	BinanceSymbols    []string `envconfig:"BINANCE_SYMBOLS" default:"BTCUSD,ETHUSD"`
	BinanceKlineLimit int      `envconfig:"BINANCE_KLINE_LIMIT" default:"1000"`

	AlphaVantageURL       string        `envconfig:"ALPHA_VANTAGE_URL" default:"https://www.alphavantage.co"`
	AlphaVantageKey       string        `envconfig:"ALPHA_VANTAGE_KEY"`
	AlphaVantagePerMinute int           `envconfig:"ALPHA_VANTAGE_PER_MINUTE" default:"5"`
	AlphaVantageRetries   int           `envconfig:"ALPHA_VANTAGE_RETRIES" default:"2"`
	AlphaVantageRetryWait time.Duration `envconfig:"ALPHA_VANTAGE_RETRY_WAIT" default:"500ms"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
