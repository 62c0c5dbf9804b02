package marker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"demotrader/src/database"
	"demotrader/src/executors"
	"demotrader/src/price"
	"demotrader/src/repository"
	"demotrader/src/trading"

	"github.com/sirupsen/logrus"
)

// Marker keeps current_price of open positions fresh between user requests.
type Marker struct{}

func (m *Marker) Start() error {
	config := executors.GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	prices := price.NewDefaultService(price.GetConfig(), repository.NewOHLCVRepositoryWithDB(database.MainDB))
	engine := trading.NewEngine(database.MainDB, trading.GetConfig(), prices)

	logrus.WithField("interval", config.MarkInterval.String()).Info("Starting mark-to-market loop")

	if err := executors.StartLoop(ctx, config, engine); err != nil {
		logrus.WithError(err).Error("Mark loop failed")
		return err
	}

	return nil
}
