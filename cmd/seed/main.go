package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"workoutauth/internal/config"
	"workoutauth/internal/database"
	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/password"
	"workoutauth/internal/repository"
	"workoutauth/internal/seed"
)

const defaultAdminPassword = "Admin123!"

func main() {
	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.LogLevel))

	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "workout.db"
	}
	db, err := database.Connect(dsn)
	if err != nil {
		fatal("DB connection failed", err)
	}
	slog.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		fatal("migration failed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := repository.NewStore(db)
	n, err := seed.Roles(ctx, store)
	if err != nil {
		fatal("seeding roles failed", err)
	}
	slog.Info("roles seeded", "created", n)

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		if cfg.AppEnv != "dev" {
			slog.Info("SEED_ADMIN_PASSWORD not set, skipping admin user")
			return
		}
		adminPassword = defaultAdminPassword
	}

	hasher, err := password.New(cfg.PasswordHasher)
	if err != nil {
		fatal("password hasher", err)
	}
	created, err := seed.AdminUser(ctx, store, hasher, seed.Admin{
		Username:  "testadmin",
		Email:     "admin@workoutproject.com",
		Password:  adminPassword,
		FirstName: "Test",
		LastName:  "Admin",
	})
	if err != nil {
		fatal("seeding admin failed", err)
	}
	slog.Info("seed complete", "admin_created", created)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
