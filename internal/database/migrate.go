package database

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies embedded schema migrations in filename order, tracking
// applied versions in schema_migrations.
func Migrate(ctx context.Context, db *sqlx.DB, log logger.Interface) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		applied, checkErr := migrationApplied(ctx, db, name)
		if checkErr != nil {
			return checkErr
		}
		if applied {
			continue
		}

		sql, readErr := migrationFiles.ReadFile("migrations/" + name)
		if readErr != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, readErr)
		}

		tx, txErr := db.BeginTxx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin migration tx: %w", txErr)
		}

		if _, execErr := tx.ExecContext(ctx, string(sql)); execErr != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", name, execErr)
		}
		if _, recordErr := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, name); recordErr != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, recordErr)
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, commitErr)
		}

		log.Info("applied migration", "version", name)
	}

	return nil
}

func migrationApplied(ctx context.Context, db *sqlx.DB, version string) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version); err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", version, err)
	}
	return count > 0, nil
}
