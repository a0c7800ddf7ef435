package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/githinji12/stream254-sub000/internal/auth"
	"github.com/githinji12/stream254-sub000/internal/http/handlers"
	"github.com/githinji12/stream254-sub000/internal/middleware"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(authHandler *handlers.AuthHandler, jwtService *auth.JWTService, authService *auth.AuthService, accounts repo.AccountRepo) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	// Coarse per-IP cap across all auth endpoints; the handler and the core
	// apply the tighter per-endpoint limits.
	authLimiter := middleware.NewEdgeLimiter(time.Minute, 30)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(authLimiter, middleware.GetIPKey))
		r.Post("/request_passcode", authHandler.HandleRequestPasscode)
		r.Post("/verify_passcode", authHandler.HandleVerifyPasscode)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// Protected routes (require a valid access or session token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, authService, accounts))
		r.Get("/me", authHandler.HandleMe)
	})

	return r
}
