package portfolio

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Timezone       string `envconfig:"PORTFOLIO_TIMEZONE" default:"UTC"`
	HistoryPerPage int    `envconfig:"HISTORY_PER_PAGE" default:"15"`
	RecentTrades   int    `envconfig:"DASHBOARD_RECENT_TRADES" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
