// Package store exports the final account snapshot to SQL databases. Each
// export replaces the previous contents of the account_snapshots table; the
// engine never reads it back.
package store

import (
	"context"

	"github.com/example/payments-engine/internal/ledger"
)

// Exporter writes a snapshot somewhere other than the CSV output.
type Exporter interface {
	Name() string
	Export(ctx context.Context, runID string, rows []ledger.AccountRow) error
	Close() error
}
