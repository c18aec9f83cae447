package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/payments-engine/internal/ledger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS account_snapshots (
    client INTEGER PRIMARY KEY,
    available NUMERIC(24,4) NOT NULL,
    held NUMERIC(24,4) NOT NULL,
    total NUMERIC(24,4) NOT NULL,
    locked BOOLEAN NOT NULL,
    run_id TEXT NOT NULL,
    exported_at TIMESTAMPTZ NOT NULL
)`

const postgresInsert = `
INSERT INTO account_snapshots (client, available, held, total, locked, run_id, exported_at)
VALUES ($1, $2::text::numeric, $3::text::numeric, $4::text::numeric, $5, $6, $7)`

// PgExecutor is the subset of *pgxpool.Pool used by the exporter.
type PgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresExporter writes snapshots into PostgreSQL.
type PostgresExporter struct {
	Pool  PgExecutor
	close func()
}

// ConnectPostgres creates a pool for databaseURL and ensures the schema.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresExporter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	exporter := &PostgresExporter{Pool: pool, close: pool.Close}
	if err := exporter.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return exporter, nil
}

// NewPostgresExporter wraps an existing executor. Close is a no-op.
func NewPostgresExporter(pool PgExecutor) *PostgresExporter {
	return &PostgresExporter{Pool: pool}
}

// Migrate creates the snapshot table if needed.
func (p *PostgresExporter) Migrate(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Pool.Exec(queryCtx, postgresSchema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *PostgresExporter) Name() string { return "postgres" }

// Export replaces the table contents with rows. The batch runs as one
// implicit transaction, so a failure leaves the previous snapshot intact.
func (p *PostgresExporter) Export(ctx context.Context, runID string, rows []ledger.AccountRow) error {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM account_snapshots`)
	for _, row := range rows {
		batch.Queue(postgresInsert,
			int32(row.Client),
			ledger.FormatAmount(row.Available),
			ledger.FormatAmount(row.Held),
			ledger.FormatAmount(row.Total),
			row.Locked,
			runID,
			now,
		)
	}

	results := p.Pool.SendBatch(queryCtx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if i == 0 {
				return fmt.Errorf("failed to clear snapshot: %w", err)
			}
			return fmt.Errorf("failed to insert client %d: %w", rows[i-1].Client, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Close releases the pool when the exporter owns it.
func (p *PostgresExporter) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
