package ledger

import (
	"maps"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits used when rendering amounts.
const Scale = 4

// Header is the column order of a rendered snapshot.
var Header = []string{"client", "available", "held", "total", "locked"}

// AccountRow is the reported view of one account.
type AccountRow struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Record renders the row in Header order.
func (r AccountRow) Record() []string {
	return []string{
		strconv.FormatUint(uint64(r.Client), 10),
		FormatAmount(r.Available),
		FormatAmount(r.Held),
		FormatAmount(r.Total),
		strconv.FormatBool(r.Locked),
	}
}

// FormatAmount renders d with exactly Scale fractional digits, rounding
// half to even.
func FormatAmount(d decimal.Decimal) string {
	return d.RoundBank(Scale).StringFixed(Scale)
}

// Snapshot projects every account into a row, ordered by ascending client id.
func (l *Ledger) Snapshot() []AccountRow {
	clients := slices.Sorted(maps.Keys(l.accounts))

	rows := make([]AccountRow, 0, len(clients))
	for _, client := range clients {
		rows = append(rows, rowFor(l.accounts[client]))
	}
	return rows
}

func rowFor(a *Account) AccountRow {
	return AccountRow{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}
