package migrations

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SeedDemoAccount bool   `envconfig:"SEED_DEMO_ACCOUNT" default:"true"`
	DemoUserName    string `envconfig:"DEMO_USER_NAME" default:"demo"`
	DemoEmail       string `envconfig:"DEMO_EMAIL" default:"demo@demotrader.local"`
	DemoPassword    string `envconfig:"DEMO_PASSWORD" default:"demo"`
	DemoBalance     string `envconfig:"DEMO_BALANCE" default:"10000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
