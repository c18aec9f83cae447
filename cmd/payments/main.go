package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/payments-engine/internal/config"
	"github.com/example/payments-engine/internal/engine"
	"github.com/example/payments-engine/internal/store"
	"github.com/example/payments-engine/pkg/audit"
)

func main() {
	verifyAudit := flag.String("verify-audit", "", "verify an audit journal written by a previous run and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <transactions.csv>\n       %s -verify-audit <journal.jsonl>\n\nStream a transactions CSV and emit account balances as CSV on stdout.\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verifyAudit != "" {
		if flag.NArg() != 0 {
			flag.Usage()
			os.Exit(2)
		}
		if err := verifyJournal(*verifyAudit); err != nil {
			fmt.Fprintf(os.Stderr, "Audit verification failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Arg(0)); err != nil {
		logger.Error("Run failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) error {
	opts := []engine.Option{engine.WithInvariantCheck(cfg.VerifyInvariants)}

	if cfg.AuditEnabled {
		var journal *audit.ChainLogger
		if cfg.AuditFile != "" {
			f, err := os.Create(cfg.AuditFile)
			if err != nil {
				return fmt.Errorf("failed to create audit file: %w", err)
			}
			defer f.Close()
			journal = audit.NewChainLogger(f)
		} else {
			journal = audit.NewChainLogger(nil)
		}
		opts = append(opts, engine.WithJournal(journal))
	}

	if cfg.SnapshotSQLite != "" {
		exporter, err := store.OpenSQLite(ctx, cfg.SnapshotSQLite)
		if err != nil {
			return fmt.Errorf("sqlite snapshot: %w", err)
		}
		defer exporter.Close()
		opts = append(opts, engine.WithExporters(exporter))
	}

	if cfg.SnapshotPostgres != "" {
		exporter, err := store.ConnectPostgres(ctx, cfg.SnapshotPostgres)
		if err != nil {
			return fmt.Errorf("postgres snapshot: %w", err)
		}
		defer exporter.Close()
		opts = append(opts, engine.WithExporters(exporter))
	}

	e := engine.New(logger, opts...)
	logger.Debug("Starting run", "run_id", e.RunID(), "input", input, "environment", cfg.Environment)

	return e.RunFile(ctx, input, os.Stdout)
}

func verifyJournal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audit journal %q: %w", path, err)
	}
	defer f.Close()

	n, head, err := audit.Verify(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "audit journal ok: %d entries, head %s\n", n, head)
	return nil
}
