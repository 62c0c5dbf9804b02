package handler

import (
	"context"
	"net/http"

	"demotrader/src/model"
	"demotrader/src/portfolio"
)

type accountReader interface {
	Snapshot(ctx context.Context, userID uint) (*portfolio.AccountSummary, error)
}

type accountResponse struct {
	User    *model.User               `json:"user"`
	Account *portfolio.AccountSummary `json:"account"`
}

// AccountHandler returns the authenticated user with live balance, equity and margin figures.
func AccountHandler(reader accountReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		summary, err := reader.Snapshot(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse{User: user, Account: summary})
	}
}
