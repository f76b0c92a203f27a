// Command migrate manages the users, posts and comments tables of the blog
// database outside of the API server's startup path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/middleware"

	"gorm.io/gorm"
)

type command struct {
	help string
	run  func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error
}

var commands = map[string]command{
	"up":     {"apply pending versioned blog migrations", migrateUp},
	"auto":   {"sync the blog models with GORM AutoMigrate", migrateAuto},
	"status": {"show the blog schema mode, tables and pending migrations", migrateStatus},
	"check":  {"exit non-zero unless the blog schema is fully applied", migrateCheck},
	"down":   {"roll back one blog migration: down <version>", migrateDown},
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <command> [args]")
	for _, name := range []string{"up", "auto", "status", "check", "down"} {
		fmt.Fprintf(os.Stderr, "  %-7s %s\n", name, commands[name].help)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		usage()
		return errors.New("migrate: missing command")
	}
	name := strings.ToLower(strings.TrimSpace(args[0]))
	cmd, ok := commands[name]
	if !ok {
		usage()
		return fmt.Errorf("migrate: unknown command %q", args[0])
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env)

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect to blog database: %w", err)
	}
	defer database.Close()

	return cmd.run(context.Background(), db, cfg, args[1:])
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("apply blog migrations: %w", err)
	}
	middleware.Logger.Info("blog migrations applied")
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	middleware.Logger.Info("blog models synced")
	return nil
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	middleware.Logger.Info("blog schema",
		"mode", status.Mode,
		"env", status.Environment,
		"dialect", status.Dialect,
		"run_sql", status.WillRunSQL,
		"run_auto", status.WillRunAutoMigrate,
		"applied", status.AppliedVersions,
		"missing_tables", status.MissingTables,
		"ready", status.Ready(),
	)
	for _, m := range status.PendingMigrations {
		middleware.Logger.Info("pending blog migration", "version", fmt.Sprintf("%06d", m.Version), "name", m.Name)
	}
	return nil
}

func migrateCheck(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	if !status.Ready() {
		return fmt.Errorf("blog schema not ready: %d pending migrations, missing tables %v",
			len(status.PendingMigrations), status.MissingTables)
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid migration version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("roll back blog migration %d: %w", version, err)
	}
	middleware.Logger.Info("blog migration rolled back", "version", version)
	return nil
}
