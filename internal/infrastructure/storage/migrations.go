package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func (s *Storage) newMigrator() (*goose.Provider, error) {
	fsys, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
}

// runMigrations applies every pending migration
func (s *Storage) runMigrations(ctx context.Context) error {
	migrator, err := s.newMigrator()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version
func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	migrator, err := s.newMigrator()
	if err != nil {
		return 0, err
	}
	return migrator.GetDBVersion(ctx)
}
