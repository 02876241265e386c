package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"workoutauth/internal/config"
	"workoutauth/internal/database"
	"workoutauth/internal/events"
	"workoutauth/internal/middleware"
	"workoutauth/internal/modules/auth"
	jwtsvc "workoutauth/internal/pkg/jwt"
	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/password"
	"workoutauth/internal/repository"
)

const (
	defaultSQLiteDSN = "workout.db"
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", "workout-auth", "env", cfg.AppEnv)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AuthRuntimeConfig, log *slog.Logger) error {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := database.Connect(dsn)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	tokens, err := jwtsvc.New(jwtsvc.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.JWTAccessTTL,
	})
	if err != nil {
		return err
	}

	hasher, err := password.New(cfg.PasswordHasher)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.LogPublisher{Logger: log}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 0)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("closing kafka publisher", "error", err)
			}
		}()
		publisher = kp
		log.Info("publishing auth events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	authService := auth.NewService(
		repository.NewStore(db),
		tokens,
		hasher,
		auth.NewDevConsoleMailer(cfg.MailDevConsole, log),
		publisher,
		auth.Options{
			LockoutThreshold: cfg.LockoutThreshold,
			LockoutDuration:  cfg.LockoutDuration,
			RefreshTTL:       cfg.RefreshTTL,
			StorageTimeout:   cfg.StorageTimeout,
			EmailTimeout:     cfg.EmailTimeout,
			ResetBaseURL:     cfg.ResetBaseURL,
		},
	)
	authHandler := auth.NewHandler(authService)

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = middleware.DefaultAllowedOrigins
	}
	r.Use(middleware.CORS(origins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	authHandler.RegisterRoutes(api, middleware.JWTAuth(tokens))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
