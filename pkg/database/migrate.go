package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationLockKey serialises migrators started concurrently by several replicas. It is
// negative so it never collides with the per-resource locks keyed by resource id.
const migrationLockKey = -727_0001

// Migration is one embedded schema change.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// LoadMigrations returns the embedded migrations ordered by version.
func LoadMigrations() ([]Migration, error) {
	return loadMigrations(migrationFiles)
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".sql"), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("migration %s: expected <version>_<name>.sql", entry.Name())
		}
		body, err := fs.ReadFile(fsys, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrate applies every pending embedded migration, one transaction per file.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	migrations, err := LoadMigrations()
	if err != nil {
		return err
	}
	return apply(ctx, db, migrations, logger)
}

func apply(ctx context.Context, db *sqlx.DB, migrations []Migration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	const versionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, name TEXT NOT NULL, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`
	if _, err := db.ExecContext(ctx, versionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := applyOne(ctx, db, m)
		if err != nil {
			return err
		}
		if applied {
			logger.Info("migration applied", zap.String("version", m.Version), zap.String("name", m.Name))
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sqlx.DB, m Migration) (applied bool, err error) {
	start := time.Now()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return false, fmt.Errorf("lock migration %s: %w", m.Version, err)
	}

	var count int
	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
		return false, fmt.Errorf("check migration %s: %w", m.Version, err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("execute migration %s: %w", m.Version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit migration %s (%s): %w", m.Version, time.Since(start), err)
	}
	return true, nil
}
