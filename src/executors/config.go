package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MarkInterval time.Duration `envconfig:"MARK_INTERVAL" default:"30s"`

	// MaxFailures stops the loop after this many consecutive failed passes. Zero never stops.
	MaxFailures int `envconfig:"MARK_MAX_FAILURES" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
