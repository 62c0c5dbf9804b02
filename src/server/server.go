package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demotrader/src/auth"
	"demotrader/src/handler"
	"demotrader/src/market"
	"demotrader/src/portfolio"
	"demotrader/src/price"
	"demotrader/src/repository"
	"demotrader/src/trading"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the services behind the HTTP surface.
type Dependencies struct {
	Instruments *repository.InstrumentRepository
	Users       *repository.GormUserRepository
	Engine      *trading.Engine
	Portfolio   *portfolio.Service
	Prices      *price.Service
	Clock       *market.Clock
	Now         func() time.Time
}

// NewDependencies wires the services using their env configuration. Writes go to db;
// chart history and catalog reads go to readDB, which may be nil.
func NewDependencies(db, readDB *gorm.DB, cfg *Config) (*Dependencies, error) {
	if readDB == nil {
		readDB = db
	}
	prices := price.NewDefaultService(price.GetConfig(), repository.NewOHLCVRepositoryWithDB(readDB))

	folio, err := portfolio.NewService(db, portfolio.GetConfig(), prices)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Instruments: repository.NewInstrumentRepositoryWithDB(readDB),
		Users:       repository.NewUserRepositoryWithDB(db),
		Engine:      trading.NewEngine(db, trading.GetConfig(), prices),
		Portfolio:   folio,
		Prices:      prices,
		Clock:       market.NewClock(cfg.AppTimezone),
		Now:         time.Now,
	}, nil
}

func NewRouter(cfg *Config, deps *Dependencies) http.Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	r.Get("/ws/prices", handler.PriceStreamHandler(deps.Prices, cfg.PriceStreamInterval))

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/instruments", handler.ListInstrumentsHandler(deps.Instruments))
		r.Get("/instruments/{symbol}", handler.GetInstrumentHandler(deps.Instruments, now))
		r.Get("/market-status", handler.MarketStatusHandler(deps.Clock, now))
		r.Get("/prices", handler.PricesHandler(deps.Prices, now))
		r.Get("/charts/data", handler.ChartDataHandler(deps.Prices, now))
		r.Get("/charts/indicator", handler.IndicatorHandler(deps.Prices, now))

		// Account routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(deps.Users))

			r.Get("/account", handler.AccountHandler(deps.Portfolio))
			r.Get("/dashboard", handler.DashboardHandler(deps.Portfolio))
			r.Get("/portfolio/summary", handler.PortfolioSummaryHandler(deps.Portfolio))

			r.Post("/trades/place", handler.PlaceOrderHandler(deps.Engine))
			r.Get("/trades/positions", handler.OpenPositionsHandler(deps.Portfolio))
			r.Get("/trades/positions/{id}", handler.PositionHandler(deps.Portfolio))
			r.Post("/trades/positions/{id}/close", handler.ClosePositionHandler(deps.Engine))
			r.Post("/trades/positions/{id}/update", handler.UpdatePositionHandler(deps.Engine))
			r.Post("/trades/orders/{id}/cancel", handler.CancelOrderHandler(deps.Engine))
			r.Get("/trades/history", handler.HistoryHandler(deps.Portfolio))
		})
	})

	return r
}

// StartServer serves until SIGINT or SIGTERM, then drains in-flight requests
// and cancels the base context so price streams end.
func StartServer(cfg *Config, deps *Dependencies) {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
