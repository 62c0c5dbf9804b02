package auth

import (
	"context"
	"net/http"
	"strconv"

	"demotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// UserHeader carries the account id resolved by the gateway in front of the API.
const UserHeader = "X-User-ID"

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// RequireUser loads the account named by UserHeader into the request context.
func RequireUser(users userFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserHeader)
			if raw == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := users.FindByID(r.Context(), uint(id))
			if err != nil {
				logger.WithError(err).WithField("user_id", id).Error("failed to load user")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
