package trading

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	CommissionRate  decimal.Decimal `envconfig:"COMMISSION_RATE" default:"0.001"`
	EnforceLotStep  bool            `envconfig:"ENFORCE_LOT_STEP" default:"false"`
	TxRetryAttempts int             `envconfig:"TX_RETRY_ATTEMPTS" default:"3"`
	TxRetryBackoff  time.Duration   `envconfig:"TX_RETRY_BACKOFF" default:"50ms"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
