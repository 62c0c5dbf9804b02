package handler

import (
	"context"
	"net/http"

	"demotrader/src/portfolio"
)

type portfolioReader interface {
	Dashboard(ctx context.Context, userID uint) (*portfolio.Dashboard, error)
	Summary(ctx context.Context, userID uint) (*portfolio.Summary, error)
}

func DashboardHandler(reader portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		dashboard, err := reader.Dashboard(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

func PortfolioSummaryHandler(reader portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		summary, err := reader.Summary(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
