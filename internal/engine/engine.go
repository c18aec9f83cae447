// Package engine wires the CSV source, the ledger and the output sinks into
// a single synchronous run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/example/payments-engine/internal/disputes"
	"github.com/example/payments-engine/internal/ingest"
	"github.com/example/payments-engine/internal/ledger"
	"github.com/example/payments-engine/internal/report"
	"github.com/example/payments-engine/internal/store"
	"github.com/example/payments-engine/pkg/audit"
)

// ErrInvariantViolation is returned when the final snapshot fails validation.
var ErrInvariantViolation = errors.New("ledger invariant violated")

// Stats counts what happened to the input rows.
type Stats struct {
	RowsRead int
	Applied  int
	Rejected int // rows that never became a command
	Ignored  int // commands the ledger declined
}

// Engine owns the ledger for one run.
type Engine struct {
	runID     string
	logger    *slog.Logger
	ledger    *ledger.Ledger
	journal   *audit.ChainLogger
	exporters []store.Exporter
	verify    bool
	stats     Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every applied command in j.
func WithJournal(j *audit.ChainLogger) Option {
	return func(e *Engine) { e.journal = j }
}

// WithExporters adds snapshot sinks that run after the CSV output.
func WithExporters(exporters ...store.Exporter) Option {
	return func(e *Engine) { e.exporters = append(e.exporters, exporters...) }
}

// WithInvariantCheck validates the ledger before anything is written.
func WithInvariantCheck(enabled bool) Option {
	return func(e *Engine) { e.verify = enabled }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// New creates an engine with an empty ledger. A nil logger discards diagnostics.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		runID:  uuid.NewString(),
		ledger: ledger.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logger = logger.With("run_id", e.runID)
	return e
}

// RunID identifies this run in diagnostics and exports.
func (e *Engine) RunID() string { return e.runID }

// Ledger exposes the underlying ledger for inspection.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats { return e.stats }

// Process feeds every row of r through the ledger. Only I/O, journal and
// cancellation failures are returned; bad rows are logged and skipped.
func (e *Engine) Process(ctx context.Context, r io.Reader) error {
	reader, err := ingest.NewReader(r)
	if err != nil {
		return err
	}

	for cmd, rowErr := range reader.Commands() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.stats.RowsRead++

		if rowErr != nil {
			e.stats.Rejected++
			e.logRejectedRow(rowErr)
			continue
		}

		if err := e.ledger.Apply(cmd); err != nil {
			e.stats.Ignored++
			e.logIgnoredCommand(reader.Row(), cmd, err)
			continue
		}
		e.stats.Applied++

		if e.journal != nil {
			if _, err := e.journal.Append(cmd.String()); err != nil {
				return err
			}
		}
	}

	return reader.Err()
}

func (e *Engine) logIgnoredCommand(row int, cmd ledger.Command, err error) {
	attrs := []any{
		"row", row,
		"type", cmd.Type.String(),
		"client", cmd.Client,
		"tx", cmd.Tx,
		"reason", err.Error(),
	}
	var transitionErr *disputes.InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		attrs = append(attrs, "state", disputes.StateDescription(transitionErr.FromState))
	}
	e.logger.Debug("Command ignored", attrs...)
}

func (e *Engine) logRejectedRow(err error) {
	var rowErr *ingest.RowError
	if !errors.As(err, &rowErr) {
		e.logger.Warn("Skipping row", "error", err.Error())
		return
	}
	e.logger.Warn("Skipping row",
		"row", rowErr.Row,
		"client", rowErr.Client,
		"tx", rowErr.Tx,
		"reason", rowErr.Err.Error(),
	)
}

// WriteAccounts validates (when enabled) and renders the snapshot to w,
// then hands it to every exporter.
func (e *Engine) WriteAccounts(ctx context.Context, w io.Writer) error {
	if e.verify {
		if failures := ledger.NewValidator(e.ledger).ComprehensiveValidation(); len(failures) > 0 {
			for _, f := range failures {
				e.logger.Error("Invariant check failed",
					"client", f.Client,
					"validation_type", f.ValidationType,
					"message", f.Message,
				)
			}
			return fmt.Errorf("%w: %d failure(s)", ErrInvariantViolation, len(failures))
		}
	}

	rows := e.ledger.Snapshot()
	if err := report.WriteCSV(w, rows); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}

	for _, exporter := range e.exporters {
		if err := exporter.Export(ctx, e.runID, rows); err != nil {
			return fmt.Errorf("export %s snapshot: %w", exporter.Name(), err)
		}
		e.logger.Info("Snapshot exported", "sink", exporter.Name(), "accounts", len(rows))
	}
	return nil
}

// Run processes r to exhaustion and writes the final accounts to w.
func (e *Engine) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	if err := e.Process(ctx, r); err != nil {
		return err
	}
	if err := e.WriteAccounts(ctx, w); err != nil {
		return err
	}

	attrs := []any{
		"rows", e.stats.RowsRead,
		"applied", e.stats.Applied,
		"rejected", e.stats.Rejected,
		"ignored", e.stats.Ignored,
		"accounts", e.ledger.Len(),
	}
	if e.journal != nil {
		attrs = append(attrs, "audit_entries", e.journal.Len(), "audit_head", e.journal.Head())
	}
	e.logger.Info("Run complete", attrs...)
	return nil
}

// RunFile opens path and runs it. Failure to open the input is a boundary
// failure.
func (e *Engine) RunFile(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input %q: %w", path, err)
	}
	defer f.Close()

	return e.Run(ctx, f, w)
}
