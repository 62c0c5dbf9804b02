package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"demotrader/src/market"
	"demotrader/src/model"
	"demotrader/src/repository"

	"github.com/go-chi/chi/v5"
)

type instrumentCatalog interface {
	ListActive(ctx context.Context, filter repository.InstrumentFilter) ([]model.Instrument, error)
	FindBySymbol(ctx context.Context, symbol string) (*model.Instrument, error)
}

// ListInstrumentsHandler lists active instruments, optionally filtered by ?type= and ?popular=true.
func ListInstrumentsHandler(catalog instrumentCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := repository.InstrumentFilter{
			Type:        model.InstrumentType(strings.ToLower(r.URL.Query().Get("type"))),
			PopularOnly: r.URL.Query().Get("popular") == "true",
		}

		instruments, err := catalog.ListActive(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"instruments": instruments})
	}
}

// GetInstrumentHandler returns one instrument with its current tradability.
func GetInstrumentHandler(catalog instrumentCatalog, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

		inst, err := catalog.FindBySymbol(r.Context(), symbol)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if inst == nil {
			writeMessage(w, http.StatusNotFound, "instrument not found: "+symbol)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"instrument": inst,
			"tradable":   inst.IsTradable(now().UTC()),
		})
	}
}

// MarketStatusHandler reports which asset classes are open.
func MarketStatusHandler(clock *market.Clock, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, clock.Status(now()))
	}
}
