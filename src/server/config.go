package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port                string        `envconfig:"PORT" default:"9898"`
	AppTimezone         string        `envconfig:"APP_TIMEZONE" default:"UTC"`
	PriceStreamInterval time.Duration `envconfig:"PRICE_STREAM_INTERVAL" default:"1s"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
