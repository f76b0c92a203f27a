package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blogapi/internal/config"
	"blogapi/internal/middleware"

	"gorm.io/gorm"
)

// Values accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// blogTables are the tables the API cannot serve requests without.
var blogTables = []string{"users", "posts", "comments"}

// SchemaStatus describes the blog schema of a database and what ApplySchema
// would change on it.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Dialect            string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	// MissingTables lists blog tables absent from the database.
	MissingTables []string
}

// Ready reports whether the users, posts and comments tables all exist and
// no versioned migration is waiting.
func (s *SchemaStatus) Ready() bool {
	return len(s.MissingTables) == 0 && len(s.PendingMigrations) == 0
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which of the two schema paths a deployment takes.
// The versioned SQL files own the blog tables and their constraints;
// AutoMigrate is a development convenience for model edits that have no
// migration file yet, so it never runs against production data by default.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode := normalizedSchemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("blog schema: DB_SCHEMA_MODE=auto is disabled in %q; set DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true to sync the users/posts/comments models directly", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("blog schema: unknown DB_SCHEMA_MODE %q (want hybrid, sql or auto)", mode)
	}
}

// ApplySchema brings the blog tables up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}
	mode := normalizedSchemaMode(cfg)

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("apply blog migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	if mode == SchemaModeAuto && isProdLikeEnv(cfg.Env) {
		middleware.Logger.WarnContext(ctx, "syncing blog models with AutoMigrate in a production environment",
			slog.String("env", cfg.Env))
	}
	middleware.Logger.InfoContext(ctx, "syncing blog models",
		slog.String("mode", mode),
		slog.Int("models", len(PersistentModels())),
	)
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("sync blog models: %w", err)
	}
	return nil
}

// GetSchemaStatus inspects db without changing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	dialect := db.Dialector.Name()
	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		Dialect:            dialect,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}

	migrator := db.WithContext(ctx).Migrator()
	for _, table := range blogTables {
		if !migrator.HasTable(table) {
			status.MissingTables = append(status.MissingTables, table)
		}
	}

	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied blog migrations: %w", err)
	}
	status.AppliedVersions = applied

	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	for _, m := range GetMigrations(dialect) {
		if _, ok := done[m.Version]; !ok {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
