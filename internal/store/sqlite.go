package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/payments-engine/internal/ledger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS account_snapshots (
    client INTEGER PRIMARY KEY,
    available TEXT NOT NULL,
    held TEXT NOT NULL,
    total TEXT NOT NULL,
    locked BOOLEAN NOT NULL,
    run_id TEXT NOT NULL,
    exported_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_account_snapshots_run_id ON account_snapshots(run_id);
`

// SQLiteExporter writes snapshots into a SQLite database file.
type SQLiteExporter struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and runs the
// schema migration.
func OpenSQLite(ctx context.Context, path string) (*SQLiteExporter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteExporter{db: db}, nil
}

func (s *SQLiteExporter) Name() string { return "sqlite" }

// Export replaces the table contents with rows inside one transaction.
func (s *SQLiteExporter) Export(ctx context.Context, runID string, rows []ledger.AccountRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM account_snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO account_snapshots (client, available, held, total, locked, run_id, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			int64(row.Client),
			ledger.FormatAmount(row.Available),
			ledger.FormatAmount(row.Held),
			ledger.FormatAmount(row.Total),
			row.Locked,
			runID,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert client %d: %w", row.Client, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteExporter) Close() error {
	return s.db.Close()
}
