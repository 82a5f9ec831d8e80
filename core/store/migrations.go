package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"dms-server/core/utils"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	fsys, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	dialect := goose.DialectPostgres
	if db.Dialect() == DialectSQLite {
		dialect = goose.DialectSQLite3
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		if logger != nil {
			logger.Printf("migration %d applied in %s", r.Source.Version, r.Duration)
		}
	}
	if len(results) > 0 {
		logMigrationAudit(ctx, db, fmt.Sprintf("applied %d migration(s)", len(results)))
	}
	return nil
}

func logMigrationAudit(ctx context.Context, db *DB, details string) {
	_, _ = db.ExecContext(ctx, `
		INSERT INTO audit_logs(id, user_id, action, document_id, details, created_at)
		VALUES(?, NULL, 'schema_migrated', NULL, ?, ?)
	`, NewID(), details, utils.NowUTC())
}
