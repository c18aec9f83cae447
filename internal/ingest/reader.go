// Package ingest reads transaction rows from CSV and normalizes them into
// ledger commands.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/payments-engine/internal/ledger"
)

// Column names expected in the header row.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// RowError describes an input row that was skipped. Row is the 1-based
// data row number (the header is not counted).
type RowError struct {
	Row    int
	Client uint16
	Tx     uint32
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ErrMalformedRow wraps rows whose shape or fields cannot be parsed.
var ErrMalformedRow = errors.New("malformed row")

// Reader produces ledger commands from a CSV stream with a header row.
type Reader struct {
	csv       *csv.Reader
	columns   map[string]int
	headerErr error
	row       int
	err       error
}

// NewReader reads the header row. Only an I/O failure is returned: an empty
// input yields no commands, and an unusable header turns every data row into
// a *RowError.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	reader := &Reader{csv: cr, columns: make(map[string]int)}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return reader, nil
	}
	if err != nil {
		var parseErr *csv.ParseError
		if !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("read header: %w", err)
		}
		reader.headerErr = fmt.Errorf("%w: unreadable header: %v", ErrMalformedRow, parseErr.Err)
		return reader, nil
	}

	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		reader.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range []string{ColumnType, ColumnClient, ColumnTx} {
		if _, ok := reader.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		reader.headerErr = fmt.Errorf("%w: header missing columns: %s", ErrMalformedRow, strings.Join(missing, ", "))
	}

	return reader, nil
}

// Commands returns a lazy sequence over the remaining rows. Each element is
// either a command or a *RowError for a skipped row; consumers continue past
// row errors. An I/O failure stops the sequence and is reported by Err.
func (r *Reader) Commands() iter.Seq2[ledger.Command, error] {
	return func(yield func(ledger.Command, error) bool) {
		for {
			record, err := r.csv.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			r.row++

			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					r.err = fmt.Errorf("read row %d: %w", r.row, err)
					return
				}
				if !yield(ledger.Command{}, &RowError{Row: r.row, Err: fmt.Errorf("%w: %v", ErrMalformedRow, parseErr.Err)}) {
					return
				}
				continue
			}

			var cmd ledger.Command
			var rowErr error
			switch {
			case r.headerErr != nil:
				rowErr = &RowError{Row: r.row, Err: r.headerErr}
			case isBlank(record):
				rowErr = &RowError{Row: r.row, Err: fmt.Errorf("%w: blank row", ErrMalformedRow)}
			default:
				cmd, rowErr = r.decode(record)
			}
			if !yield(cmd, rowErr) {
				return
			}
		}
	}
}

// Row returns the data row number of the most recently yielded element.
func (r *Reader) Row() int {
	return r.row
}

// Err returns the I/O failure that ended iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) decode(record []string) (ledger.Command, error) {
	raw, err := r.parse(record)
	if err != nil {
		return ledger.Command{}, &RowError{Row: r.row, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
	}

	cmd, err := ledger.Normalize(raw)
	if err != nil {
		return ledger.Command{}, &RowError{Row: r.row, Client: raw.Client, Tx: raw.Tx, Err: err}
	}
	return cmd, nil
}

func (r *Reader) parse(record []string) (ledger.RawRecord, error) {
	var raw ledger.RawRecord

	typ, ok := r.field(record, ColumnType)
	if !ok {
		return raw, fmt.Errorf("missing %s", ColumnType)
	}
	raw.Type = typ

	client, ok := r.field(record, ColumnClient)
	if !ok {
		return raw, fmt.Errorf("missing %s", ColumnClient)
	}
	c, err := strconv.ParseUint(client, 10, 16)
	if err != nil {
		return raw, fmt.Errorf("invalid %s %q", ColumnClient, client)
	}
	raw.Client = uint16(c)

	tx, ok := r.field(record, ColumnTx)
	if !ok {
		return raw, fmt.Errorf("missing %s", ColumnTx)
	}
	t, err := strconv.ParseUint(tx, 10, 32)
	if err != nil {
		return raw, fmt.Errorf("invalid %s %q", ColumnTx, tx)
	}
	raw.Tx = uint32(t)

	if amount, ok := r.field(record, ColumnAmount); ok && amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return raw, fmt.Errorf("invalid %s %q", ColumnAmount, amount)
		}
		raw.Amount = &d
	}

	return raw, nil
}

// field returns the trimmed value of a named column; ok is false when the
// row is too short to contain it.
func (r *Reader) field(record []string, name string) (string, bool) {
	idx, ok := r.columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
