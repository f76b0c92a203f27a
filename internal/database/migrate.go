package database

import (
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"blogapi/internal/middleware"
)

// Migration is one versioned SQL schema change with its rollback.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// migrations are keyed by GORM dialector name.
var migrations = map[string][]Migration{}

func init() {
	for _, dialect := range []string{"postgres", "sqlite"} {
		if err := RegisterMigrations(migrationFS, dialect); err != nil {
			fmt.Printf("failed to register %s migrations: %v\n", dialect, err)
		}
	}
}

// RegisterMigrations loads NNNNNN_name.up.sql / .down.sql pairs from
// migrations/<dialect>.
func RegisterMigrations(efs embed.FS, dialect string) error {
	dir := path.Join("migrations", dialect)
	entries, err := efs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var list []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 {
			middleware.Logger.Warn("Skipping migration with invalid naming", slog.String("file", name))
			continue
		}

		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			middleware.Logger.Warn("Skipping migration with invalid version", slog.String("file", name))
			continue
		}

		upBytes, err := efs.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read up migration %s: %w", name, err)
		}

		downName := base + ".down.sql"
		downBytes, err := efs.ReadFile(path.Join(dir, downName))
		if err != nil {
			return fmt.Errorf("failed to read down migration %s: %w", downName, err)
		}

		list = append(list, Migration{
			Version:    version,
			Name:       parts[1],
			UpScript:   string(upBytes),
			DownScript: string(downBytes),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Version < list[j].Version
	})
	migrations[dialect] = list
	return nil
}

// GetMigrations returns the registered migrations for a dialect in version order.
func GetMigrations(dialect string) []Migration {
	return migrations[dialect]
}

func GetMigrationByVersion(dialect string, version int) *Migration {
	for _, m := range migrations[dialect] {
		if m.Version == version {
			return &m
		}
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
