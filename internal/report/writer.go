// Package report renders the final account snapshot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/example/payments-engine/internal/ledger"
)

// WriteCSV writes a header row followed by one row per account.
func WriteCSV(w io.Writer, rows []ledger.AccountRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledger.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("write client %d: %w", row.Client, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush accounts: %w", err)
	}
	return nil
}
