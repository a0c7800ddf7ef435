package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/auth"
	"github.com/githinji12/stream254-sub000/internal/middleware"
	"github.com/githinji12/stream254-sub000/internal/model"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService     *auth.AuthService
	ipLimiter       *middleware.EdgeLimiter
	verifyIPLimiter *middleware.EdgeLimiter
	log             *zap.Logger
}

// NewAuthHandler creates a new auth handler. The per-IP edge limiters sit in
// front of the store-backed limiters in the core (10 requests and 20 verifies
// per 10 minutes per IP).
func NewAuthHandler(authService *auth.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		ipLimiter:       middleware.NewEdgeLimiter(10*time.Minute, 10),
		verifyIPLimiter: middleware.NewEdgeLimiter(10*time.Minute, 20),
		log:             log.Named("http"),
	}
}

// requestPasscodeRequest is the request body for POST /auth/request_passcode
type requestPasscodeRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// requestPasscodeResponse is the JSON response for request_passcode
type requestPasscodeResponse struct {
	Message string `json:"message"`
	DevCode string `json:"dev_code,omitempty"`
}

// verifyPasscodeRequest is the request body for POST /auth/verify_passcode
type verifyPasscodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// verifyPasscodeResponse is the JSON response for verify_passcode
type verifyPasscodeResponse struct {
	AccessToken      string          `json:"access_token"`
	SessionToken     string          `json:"session_token"`
	SessionExpiresAt time.Time       `json:"session_expires_at"`
	TokenType        string          `json:"token_type"`
	Account          accountResponse `json:"account"`
}

// accountResponse is the account object in API responses
type accountResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// HandleRequestPasscode handles POST /auth/request_passcode
func (h *AuthHandler) HandleRequestPasscode(w http.ResponseWriter, r *http.Request) {
	var req requestPasscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}
	purpose := model.Purpose(req.Purpose)
	if req.Purpose == "" {
		purpose = model.PurposeLogin
	}

	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	origin := requestOrigin(r)
	err := h.authService.RequestPasscode(r.Context(), req.Email, purpose, origin)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidPurpose):
		respondWithError(w, http.StatusBadRequest, "invalid purpose")
		return
	default:
		h.log.Error("request passcode failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to request code")
		return
	}

	response := requestPasscodeResponse{Message: "code_sent"}
	if code, ok := h.authService.DevCode(); ok {
		response.DevCode = code
	}
	respondWithJSON(w, http.StatusOK, response)
}

// HandleVerifyPasscode handles POST /auth/verify_passcode
func (h *AuthHandler) HandleVerifyPasscode(w http.ResponseWriter, r *http.Request) {
	var req verifyPasscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if !h.verifyIPLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	origin := requestOrigin(r)
	result, err := h.authService.VerifyPasscode(r.Context(), req.Email, req.Code, origin)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	case errors.Is(err, auth.ErrAccountLocked):
		respondWithError(w, http.StatusForbidden, "account temporarily locked")
		return
	case errors.Is(err, auth.ErrInvalidOrExpiredCode):
		respondWithError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	default:
		h.log.Error("verify passcode failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	respondWithJSON(w, http.StatusOK, verifyPasscodeResponse{
		AccessToken:      result.AccessToken,
		SessionToken:     result.SessionToken,
		SessionExpiresAt: result.SessionExpiresAt,
		TokenType:        "bearer",
		Account: accountResponse{
			ID:            result.Account.ID.String(),
			Email:         result.Account.Email,
			EmailVerified: result.Account.EmailVerified,
		},
	})
}

// refreshRequest is the request body for POST /auth/refresh
type refreshRequest struct {
	SessionToken string `json:"session_token"`
}

// refreshResponse is the JSON response for refresh
type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleRefresh handles POST /auth/refresh. Presenting a valid session token
// mints a fresh access token; the session itself is never extended.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SessionToken = strings.TrimSpace(req.SessionToken)
	if req.SessionToken == "" {
		respondWithError(w, http.StatusBadRequest, "session_token is required")
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), req.SessionToken)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrAccountLocked):
		respondWithError(w, http.StatusForbidden, "account temporarily locked")
		return
	case errors.Is(err, auth.ErrSessionInvalid):
		respondWithError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	default:
		h.log.Error("refresh failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	respondWithJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// logoutRequest is the request body for POST /auth/logout
type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// HandleLogout handles POST /auth/logout. Idempotent: revoking an unknown or
// already-revoked token succeeds with revoked=false.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SessionToken = strings.TrimSpace(req.SessionToken)
	if req.SessionToken == "" {
		respondWithError(w, http.StatusBadRequest, "session_token is required")
		return
	}

	revoked, err := h.authService.Logout(r.Context(), req.SessionToken, requestOrigin(r))
	if err != nil {
		h.log.Error("logout failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"message": "logged out", "revoked": revoked})
}

// HandleMe handles GET /me (protected). Returns the authenticated account.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok || account == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondWithJSON(w, http.StatusOK, accountResponse{
		ID:            account.ID.String(),
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
	})
}

// requestOrigin extracts client origin metadata from the request
func requestOrigin(r *http.Request) model.Origin {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		ip = strings.TrimSpace(parts[0])
	}
	return model.Origin{IP: ip, UserAgent: r.UserAgent()}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
