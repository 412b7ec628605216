package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in SQLite's user_version header field.
const schemaVersion = 1

// keyspaceTables must all exist in a ledger at schemaVersion.
var keyspaceTables = []string{"urls", "contents"}

// ErrSchemaMismatch reports a database that is not a ledger this build can use.
var ErrSchemaMismatch = errors.New("ledger schema mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read ledger version: %w", err)
	}

	switch version {
	case 0:
		foreign, err := s.countTables(ctx)
		if err != nil {
			return err
		}
		if foreign > 0 {
			return fmt.Errorf("%w: %s holds %d unrelated tables; point paths.ledger_path at a new file",
				ErrSchemaMismatch, s.path, foreign)
		}
		return s.createSchema(ctx)
	case schemaVersion:
		return s.verifyKeyspaces(ctx)
	default:
		return fmt.Errorf("%w: %s is at version %d, this build reads version %d (move it aside; already-seen URLs will be downloaded again)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
}

func (s *Store) countTables(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("inspect ledger tables: %w", err)
	}
	return n, nil
}

// verifyKeyspaces catches a versioned file whose tables were dropped by hand.
func (s *Store) verifyKeyspaces(ctx context.Context) error {
	for _, table := range keyspaceTables {
		var n int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect ledger tables: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s is missing the %s keyspace", ErrSchemaMismatch, s.path, table)
		}
	}
	return nil
}

// createSchema creates both keyspaces and stamps the version in one
// transaction, so a crash leaves either an empty file or a complete ledger.
func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create keyspaces: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp ledger version: %w", err)
	}
	return tx.Commit()
}
