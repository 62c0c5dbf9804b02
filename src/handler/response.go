package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"demotrader/src/auth"
	"demotrader/src/indicator"
	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/trading"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps engine, oracle and indicator errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var unsupported *indicator.UnsupportedIndicatorError
	switch {
	case errors.As(err, &unsupported),
		errors.Is(err, indicator.ErrInvalidParams),
		errors.Is(err, model.ErrInvalidTimeframe),
		errors.Is(err, price.ErrInvalidRange):
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, indicator.ErrInsufficientData):
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	category := trading.CategoryOf(err)
	status := http.StatusInternalServerError
	switch category {
	case trading.CategoryValidation, trading.CategoryDomainRule:
		status = http.StatusUnprocessableEntity
	case trading.CategoryNotFound:
		status = http.StatusNotFound
	case trading.CategoryConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeJSON(w, status, errorResponse{Error: "Internal Server Error", Category: string(category)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Category: string(category)})
}

// requireUser writes 401 and returns false when the middleware did not attach an account.
func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// symbolsParam splits a comma separated list, dropping blanks and duplicates.
func symbolsParam(raw string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func positiveIntParam(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
