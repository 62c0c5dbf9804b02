package main

import (
	"fmt"
	"os"
	"time"

	"demotrader/src/database"
	"demotrader/src/server"
	"demotrader/src/utils"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	utils.SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize read-only database
	if err := database.InitReadOnlyDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	cfg := server.GetConfig()
	deps, err := server.NewDependencies(database.MainDB, database.ReadOnlyDB, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build services")
	}

	server.StartServer(cfg, deps)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
