// Package bootstrap wires process-wide runtime dependencies for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime installs the logger, connects to the database and Redis, and
// ensures the development user when configured. A nil Redis client means the
// application runs without Redis.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	middleware.Logger = middleware.NewLogger(cfg.Env)
	observability.SetLogger(middleware.Logger)

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevUser(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development user: %w", err)
	}

	return db, r, nil
}

// ensureDevUser creates the configured development account when it is
// missing. Existing accounts are left untouched.
func ensureDevUser(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapUser {
		return nil
	}

	username := strings.TrimSpace(cfg.DevUserUsername)
	if username == "" {
		username = "blog_dev"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevUserEmail))
	password := cfg.DevUserPassword
	if password == "" {
		return fmt.Errorf("DEV_USER_PASSWORD must be set when DEV_BOOTSTRAP_USER is enabled")
	}
	if err := validation.ValidatePassword(password, username); err != nil {
		return fmt.Errorf("DEV_USER_PASSWORD: %w", err)
	}

	users := repository.NewUserRepository(db)
	taken, err := users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash development password: %w", err)
	}
	user := &models.User{Username: username, Email: email, Password: string(hash)}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	middleware.Logger.Info("development user created", "user_id", user.ID, "username", username)
	return nil
}
