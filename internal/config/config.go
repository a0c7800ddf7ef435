package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string

	// AuthSecret peppers session-token digests and signs JWT access tokens.
	AuthSecret string
	// PasscodeSalt peppers passcode digests.
	PasscodeSalt string

	// Tunables for the authentication core.
	PasscodeLength         int
	PasscodeTTL            time.Duration
	MaxPasscodeRequests    int           // per identifier per RequestWindow
	RequestWindow          time.Duration
	MaxVerifyAttempts      int           // per origin IP per VerifyWindow; also the lockout threshold
	VerifyWindow           time.Duration
	LockoutDuration        time.Duration
	SessionTTL             time.Duration
	AccessTokenTTL         time.Duration

	// SMTP delivery settings. Host empty means delivery is log-only.
	SMTPHost string
	SMTPPort int
	SMTPFrom string
	SMTPUser string
	SMTPPass string

	LogEnv   string // "dev" | "prod"
	LogLevel string
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                "8080", // default port
		PasscodeLength:      6,
		PasscodeTTL:         10 * time.Minute,
		MaxPasscodeRequests: 3,
		RequestWindow:       time.Hour,
		MaxVerifyAttempts:   5,
		VerifyWindow:        15 * time.Minute,
		LockoutDuration:     30 * time.Minute,
		SessionTTL:          7 * 24 * time.Hour,
		AccessTokenTTL:      24 * time.Hour,
		SMTPPort:            587,
		LogEnv:              "dev",
		LogLevel:            "info",
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET environment variable is required")
	}
	cfg.AuthSecret = authSecret

	passcodeSalt := os.Getenv("PASSCODE_SALT")
	if passcodeSalt == "" {
		return nil, fmt.Errorf("PASSCODE_SALT environment variable is required")
	}
	cfg.PasscodeSalt = passcodeSalt

	var err error
	if cfg.PasscodeLength, err = intEnv("PASSCODE_LENGTH", cfg.PasscodeLength); err != nil {
		return nil, err
	}
	if cfg.PasscodeLength < 4 || cfg.PasscodeLength > 9 {
		return nil, fmt.Errorf("PASSCODE_LENGTH must be between 4 and 9, got %d", cfg.PasscodeLength)
	}
	if cfg.PasscodeTTL, err = durationEnv("PASSCODE_TTL", cfg.PasscodeTTL); err != nil {
		return nil, err
	}
	if cfg.MaxPasscodeRequests, err = intEnv("MAX_PASSCODE_REQUESTS", cfg.MaxPasscodeRequests); err != nil {
		return nil, err
	}
	if cfg.RequestWindow, err = durationEnv("PASSCODE_REQUEST_WINDOW", cfg.RequestWindow); err != nil {
		return nil, err
	}
	if cfg.MaxVerifyAttempts, err = intEnv("MAX_VERIFY_ATTEMPTS", cfg.MaxVerifyAttempts); err != nil {
		return nil, err
	}
	if cfg.VerifyWindow, err = durationEnv("VERIFY_WINDOW", cfg.VerifyWindow); err != nil {
		return nil, err
	}
	if cfg.LockoutDuration, err = durationEnv("LOCKOUT_DURATION", cfg.LockoutDuration); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = intEnv("SMTP_PORT", cfg.SMTPPort); err != nil {
		return nil, err
	}
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")

	if env := os.Getenv("LOG_ENV"); env != "" {
		cfg.LogEnv = env
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}

// intEnv parses an integer environment variable, returning def when unset.
func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// durationEnv parses a duration environment variable ("10m", "168h"), returning def when unset.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like \"10m\", got %q", name, raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, raw)
	}
	return v, nil
}
