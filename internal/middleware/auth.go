package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/githinji12/stream254-sub000/internal/auth"
	"github.com/githinji12/stream254-sub000/internal/model"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

type contextKey string

const (
	accountKey   contextKey = "account"
	accountIDKey contextKey = "account_id"
)

// AuthMiddleware authenticates requests with a bearer credential. A JWT
// access token is verified statelessly; anything else is treated as an
// opaque session token and resolved through the session manager. Either
// way the account is loaded and its lockout state re-checked, so a lockout
// overrides both token kinds.
func AuthMiddleware(jwtService *auth.JWTService, svc *auth.AuthService, accounts repo.AccountRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			var account model.Account
			if claims, err := jwtService.VerifyToken(tokenString); err == nil {
				account, err = accounts.GetByID(r.Context(), claims.AccountID)
				if err != nil {
					if errors.Is(err, repo.ErrNotFound) {
						respondWithError(w, http.StatusUnauthorized, "account not found")
					} else {
						respondWithError(w, http.StatusInternalServerError, "authentication failed")
					}
					return
				}
				if account.Locked(time.Now()) {
					respondWithError(w, http.StatusForbidden, "account temporarily locked")
					return
				}
			} else {
				account, _, err = svc.ValidateSession(r.Context(), tokenString)
				switch {
				case err == nil:
				case errors.Is(err, auth.ErrAccountLocked):
					respondWithError(w, http.StatusForbidden, "account temporarily locked")
					return
				case errors.Is(err, auth.ErrSessionInvalid):
					respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				default:
					respondWithError(w, http.StatusInternalServerError, "authentication failed")
					return
				}
			}

			ctx := context.WithValue(r.Context(), accountKey, &account)
			ctx = context.WithValue(ctx, accountIDKey, account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount returns the account attached to the request context (set by AuthMiddleware)
func GetAccount(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok
}

// GetAccountID extracts the account ID from context
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
