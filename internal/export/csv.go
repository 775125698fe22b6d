package export

import (
	"fmt"
	"io"
	"strings"

	"kas/internal/core"
)

// csvHeader is the fixed column order of the CSV report.
const csvHeader = "date,type,category,description,amount,method,note"

// WriteCSV renders the transactions as UTF-8 CSV, header row first,
// one line per record.
//
// Commas inside free-text fields are replaced with spaces instead of
// RFC 4180 quoting. This is lossy but keeps the output bit-for-bit
// compatible with the report consumers that split on commas; every
// line always yields exactly 7 fields.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, t := range txs {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s,%s\n",
			t.Date.String(),
			t.Type,
			stripCommas(t.Category),
			stripCommas(t.Description),
			t.Amount.String(),
			stripCommas(string(t.Method)),
			stripCommas(t.Note),
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", " ")
}
