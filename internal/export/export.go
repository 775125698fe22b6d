// Package export renders a filtered, chronologically sorted transaction
// set into the downloadable report formats: CSV, PDF and XLSX.
//
// Every renderer works on an already-fetched slice and writes into the
// caller's writer only after the full document is assembled, so a
// failing query or render never leaks a partial file.
package export

import (
	"strconv"
	"strings"

	"kas/internal/core"
)

// Period is the optional reporting window shown on the PDF header.
// A zero bound renders as "-".
type Period struct {
	From core.Date
	To   core.Date
}

func (p Period) isZero() bool {
	return p.From.IsZero() && p.To.IsZero()
}

func (p Period) bound(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

// formatRupiah renders cents as whole currency units with dotted
// thousands separators, e.g. "Rp 1.234.567". Sub-unit cents are
// truncated; the report convention has no decimal places.
func formatRupiah(cents int64) string {
	units := cents / 100
	neg := units < 0
	if neg {
		units = -units
	}

	digits := strconv.FormatInt(units, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	if neg {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sumTotals computes income and expense over the exact set being
// rendered, in cents, so printed totals can never drift from the line
// items.
func sumTotals(txs []core.Transaction) (income, expense int64) {
	for _, t := range txs {
		if t.Type == core.Income {
			income += t.Amount.Cents
		} else {
			expense += t.Amount.Cents
		}
	}
	return income, expense
}
