package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/audit"
	"github.com/githinji12/stream254-sub000/internal/auth"
	"github.com/githinji12/stream254-sub000/internal/config"
	"github.com/githinji12/stream254-sub000/internal/db"
	"github.com/githinji12/stream254-sub000/internal/delivery"
	httpx "github.com/githinji12/stream254-sub000/internal/http"
	"github.com/githinji12/stream254-sub000/internal/http/handlers"
	"github.com/githinji12/stream254-sub000/internal/logger"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

func main() {
	// Env vars override .env values
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories
	accountRepo := repo.NewAccountRepo(database)
	passcodeRepo := repo.NewPasscodeRepo(database)
	attemptRepo := repo.NewAttemptRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	// Collaborators
	sink := audit.NewZapSink(log)
	var sender delivery.Sender
	if cfg.SMTPHost != "" && !cfg.DevMode {
		sender = delivery.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, log)
	} else {
		sender = delivery.NewLogSender(log)
	}

	// Auth core
	lockout := auth.NewLockoutGuard(accountRepo, cfg.LockoutDuration, sink, log)
	passcodes := auth.NewPasscodeManager(passcodeRepo, attemptRepo, accountRepo, lockout, sender, sink, cfg.PasscodeSalt, auth.PasscodeConfig{
		Length:            cfg.PasscodeLength,
		TTL:               cfg.PasscodeTTL,
		MaxRequests:       cfg.MaxPasscodeRequests,
		RequestWindow:     cfg.RequestWindow,
		MaxVerifyAttempts: cfg.MaxVerifyAttempts,
		VerifyWindow:      cfg.VerifyWindow,
		DevMode:           cfg.DevMode,
	}, log)
	sessions := auth.NewSessionManager(sessionRepo, accountRepo, cfg.AuthSecret, cfg.SessionTTL, sink, log)
	jwtService := auth.NewJWTService(cfg.AuthSecret, cfg.AccessTokenTTL)
	authService := auth.NewAuthService(passcodes, sessions, jwtService, log)

	authHandler := handlers.NewAuthHandler(authService, log)
	router := httpx.NewRouter(authHandler, jwtService, authService, accountRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
