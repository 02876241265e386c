package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultLogLevel         = "info"
	defaultJWTSecret        = "change-me-jwt-secret-change-me-jwt-secret"
	defaultJWTIssuer        = "workout-api"
	defaultJWTAudience      = "workout-client"
	defaultAccessTTLMinutes = "60"
	defaultRefreshTTLDays   = "7"
	defaultLockoutThreshold = "5"
	defaultLockoutDuration  = "15m"
	defaultPasswordHasher   = "bcrypt"
	defaultStorageTimeout   = "5s"
	defaultEmailTimeout     = "10s"
	defaultResetBaseURL     = "http://localhost:5173"
	defaultKafkaTopic       = "auth_events"
	defaultMailDevConsole   = "false"

	minSecretLength     = 32
	maxLockoutThreshold = 10
)

type AuthRuntimeConfig struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string

	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTAccessTTL time.Duration
	RefreshTTL   time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration
	PasswordHasher   string

	StorageTimeout time.Duration
	EmailTimeout   time.Duration
	ResetBaseURL   string
	MailDevConsole bool

	KafkaBrokers []string
	KafkaTopic   string

	// CORSAllowedOrigins is empty unless CORS_ALLOWED_ORIGINS is set.
	CORSAllowedOrigins []string
}

// LoadAuthRuntimeConfig reads .env when present, then the process environment,
// which wins on conflicts.
func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg := &AuthRuntimeConfig{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.JWTIssuer = strings.TrimSpace(getEnv("JWT_ISSUER", defaultJWTIssuer))
	cfg.JWTAudience = strings.TrimSpace(getEnv("JWT_AUDIENCE", defaultJWTAudience))
	cfg.PasswordHasher = strings.ToLower(strings.TrimSpace(getEnv("PASSWORD_HASHER", defaultPasswordHasher)))
	cfg.ResetBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("RESET_BASE_URL", defaultResetBaseURL)), "/")
	cfg.MailDevConsole = parseBoolEnv("MAIL_DEV_CONSOLE", defaultMailDevConsole)
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = strings.TrimSpace(getEnv("KAFKA_AUTH_TOPIC", defaultKafkaTopic))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	accessMinutes, err := parseIntEnv("JWT_ACCESS_TTL_MINUTES", defaultAccessTTLMinutes)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = time.Duration(accessMinutes) * time.Minute

	refreshDays, err := parseIntEnv("REFRESH_TTL_DAYS", defaultRefreshTTLDays)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTTL = time.Duration(refreshDays) * 24 * time.Hour

	threshold, err := parseIntEnv("LOCKOUT_THRESHOLD", defaultLockoutThreshold)
	if err != nil {
		return nil, err
	}
	cfg.LockoutThreshold = clamp(threshold, 1, maxLockoutThreshold)

	if cfg.LockoutDuration, err = parseDurationEnv("LOCKOUT_DURATION", defaultLockoutDuration); err != nil {
		return nil, err
	}
	if cfg.StorageTimeout, err = parseDurationEnv("STORAGE_TIMEOUT", defaultStorageTimeout); err != nil {
		return nil, err
	}
	if cfg.EmailTimeout, err = parseDurationEnv("EMAIL_TIMEOUT", defaultEmailTimeout); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL_MINUTES must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL_DAYS must be > 0")
	}
	if cfg.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be > 0")
	}
	if cfg.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be > 0")
	}
	if cfg.EmailTimeout <= 0 {
		return fmt.Errorf("EMAIL_TIMEOUT must be > 0")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		return fmt.Errorf("JWT_ISSUER and JWT_AUDIENCE must not be empty")
	}
	switch cfg.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("PASSWORD_HASHER must be one of: bcrypt, argon2id")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if len(cfg.JWTSecret) < minSecretLength {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least %d bytes", minSecretLength)
		}
		if cfg.MailDevConsole {
			return fmt.Errorf("in prod/release MAIL_DEV_CONSOLE must be false")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
