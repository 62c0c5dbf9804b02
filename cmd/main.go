package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demotrader/cmd/indicators"
	"demotrader/cmd/marker"
	"demotrader/cmd/ohlcvsync"
	"demotrader/src/database"
	"demotrader/src/indicator"
	"demotrader/src/price"
	"demotrader/src/repository"
	"demotrader/src/server"
	"demotrader/src/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	_ = godotenv.Load()
	utils.SetupLogger()

	app := cli.NewApp()
	app.Name = "DemoTrader CMD"
	app.Usage = "The DemoTrader command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serveCMD,
		migrateCMD,
		ohlcvSyncCMD,
		markerCMD,
		indicatorCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the trading API and the price stream`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "run schema and data migrations",
		Action:      migrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Create tables, seed the instrument catalog and the demo account`,
	}
	ohlcvSyncCMD = cli.Command{
		Name:        "ohlcv_sync",
		Usage:       "run OHLCV sync",
		Action:      ohlcvSyncAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Copy Binance klines for SYNC_SYMBOLS into ohlcv_bars`,
	}
	markerCMD = cli.Command{
		Name:        "marker",
		Usage:       "run mark-to-market loop",
		Action:      markerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Refresh the current price of every open position every MARK_INTERVAL`,
	}
	indicatorCMD = cli.Command{
		Name:      "indicator",
		Usage:     "print an indicator as JSON",
		Action:    indicatorAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "symbol", Value: "EURUSD"},
			cli.StringFlag{Name: "timeframe", Value: "1h"},
			cli.StringFlag{Name: "indicator", Value: "sma", Usage: "sma, ema, bollinger, macd or rsi"},
			cli.IntFlag{Name: "bars", Value: 100},
			cli.IntFlag{Name: "period"},
			cli.IntFlag{Name: "fast"},
			cli.IntFlag{Name: "slow"},
			cli.IntFlag{Name: "signal"},
			cli.Float64Flag{Name: "deviations"},
		},
		Description: `Calculate an indicator over the latest bars of a symbol`,
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to read-only database")
		return err
	}

	cfg := server.GetConfig()
	deps, err := server.NewDependencies(database.MainDB, database.ReadOnlyDB, cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to build services")
		return err
	}

	server.StartServer(cfg, deps)
	return nil
}

// migrateAction relies on InitMainDB, which migrates on connect.
func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}
	return nil
}

func ohlcvSyncAction(_ *cli.Context) error {
	logrus.Info("Starting OHLCV sync CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := ohlcvsync.NewOHLCVSync(
		logrus.WithField("cmd", "ohlcv_sync"),
		repository.NewOHLCVRepositoryWithDB(database.MainDB),
		price.GetConfig(),
		ohlcvsync.GetConfig(),
	)

	if err := syncer.Start(ctx); err != nil {
		logrus.WithError(err).Error("Starting OHLCV sync cmd")
		return err
	}

	return nil
}

func markerAction(_ *cli.Context) error {
	logrus.Info("Starting marker CMD")

	m := &marker.Marker{}
	if err := m.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

// indicatorAction prefers stored bars and falls back to the price sources when a database is reachable.
func indicatorAction(c *cli.Context) error {
	var bars price.BarReader
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Warn("No database, using upstream and synthetic prices only")
	} else {
		bars = repository.NewOHLCVRepositoryWithDB(database.MainDB)
	}

	prices := price.NewDefaultService(price.GetConfig(), bars)

	return indicators.Run(context.Background(), prices, indicators.Options{
		Symbol:    c.String("symbol"),
		Timeframe: c.String("timeframe"),
		Kind:      c.String("indicator"),
		Bars:      c.Int("bars"),
		Params: indicator.Params{
			Period:     c.Int("period"),
			Fast:       c.Int("fast"),
			Slow:       c.Int("slow"),
			Signal:     c.Int("signal"),
			Deviations: c.Float64("deviations"),
		},
	}, time.Now(), os.Stdout)
}
