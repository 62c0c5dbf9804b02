package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"demotrader/src/model"
	"demotrader/src/portfolio"
	"demotrader/src/trading"
)

type orderEngine interface {
	PlaceOrder(ctx context.Context, req trading.OrderRequest) (*trading.OrderResult, error)
	ClosePosition(ctx context.Context, userID, positionID uint) (*trading.CloseResult, error)
	UpdatePosition(ctx context.Context, userID, positionID uint, levels trading.StopLevels) (*model.Position, error)
	CancelOrder(ctx context.Context, userID, tradeID uint) (*model.Trade, error)
}

type positionReader interface {
	OpenPositions(ctx context.Context, userID uint) ([]portfolio.OpenPosition, error)
	Position(ctx context.Context, userID, positionID uint) (*portfolio.OpenPosition, error)
	History(ctx context.Context, userID uint, page, perPage int) (*portfolio.HistoryPage, error)
}

// PlaceOrderHandler decodes an OrderRequest body and submits it for the authenticated user.
func PlaceOrderHandler(engine orderEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req trading.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.UserID = user.ID

		result, err := engine.PlaceOrder(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		message := "Order placed"
		if result.Position == nil {
			message = "Pending order created"
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success":  true,
			"message":  message,
			"position": result.Position,
			"trade":    result.Trade,
		})
	}
}

func ClosePositionHandler(engine orderEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid position id")
			return
		}

		result, err := engine.ClosePosition(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"position": result.Position,
			"profit":   result.Profit,
		})
	}
}

func UpdatePositionHandler(engine orderEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid position id")
			return
		}

		var levels trading.StopLevels
		if err := json.NewDecoder(r.Body).Decode(&levels); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		position, err := engine.UpdatePosition(r.Context(), user.ID, id, levels)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "position": position})
	}
}

func CancelOrderHandler(engine orderEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid order id")
			return
		}

		trade, err := engine.CancelOrder(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "trade": trade})
	}
}

func OpenPositionsHandler(reader positionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		positions, err := reader.OpenPositions(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"positions": positions})
	}
}

func PositionHandler(reader positionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid position id")
			return
		}

		position, err := reader.Position(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"position": position})
	}
}

// HistoryHandler pages through settled trades with ?page= and ?per_page=.
func HistoryHandler(reader positionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		page, ok := positiveIntParam(r, "page", 1)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid page")
			return
		}
		perPage, ok := positiveIntParam(r, "per_page", 0)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid per_page")
			return
		}

		history, err := reader.History(r.Context(), user.ID, page, perPage)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, history)
	}
}
