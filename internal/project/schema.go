package project

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"ionbatch/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is kept in PRAGMA user_version. Zero means an empty database.
const schemaVersion = 1

// ErrSchemaMismatch marks a project written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context, writable bool) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version == schemaVersion:
		return nil
	case version == 0 && writable:
		return s.createSchema(ctx)
	case version == 0:
		return services.Wrap(services.ErrNotFound, "project", "open", s.path+" is not an ionbatch project", nil)
	default:
		return services.Wrap(services.ErrConfiguration, "project", "open",
			fmt.Sprintf("project has schema %d, this build reads %d; use a new project directory", version, schemaVersion),
			ErrSchemaMismatch)
	}
}

// createSchema applies schema.sql and stamps the version in one transaction.
func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return tx.Commit()
}
