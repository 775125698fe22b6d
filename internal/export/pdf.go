package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"kas/internal/core"
)

// WritePDF renders the paginated financial report: a title, the
// optional period line, one row per transaction and the three summary
// lines. Page breaks are automatic; the document is streamed to w only
// once fully built.
func WritePDF(w io.Writer, txs []core.Transaction, period Period) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(14, 14, 14)
	doc.SetAutoPageBreak(true, 16)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 9, "Laporan Keuangan", "", 1, "C", false, 0, "")
	doc.Ln(2)

	if !period.isZero() {
		doc.SetFont("Helvetica", "", 10)
		line := fmt.Sprintf("Periode: %s s/d %s", period.bound(period.From), period.bound(period.To))
		doc.CellFormat(0, 6, line, "", 1, "C", false, 0, "")
		doc.Ln(2)
	}

	doc.SetFont("Helvetica", "", 11)
	for _, t := range txs {
		line := fmt.Sprintf("%s  |  %s  |  %s  |  %s  |  %s",
			t.Date.String(),
			strings.ToUpper(string(t.Type)),
			orDash(t.Category),
			orDash(t.Description),
			formatRupiah(t.Amount.Cents),
		)
		doc.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	income, expense := sumTotals(txs)
	doc.CellFormat(0, 6, "Total Pemasukan: "+formatRupiah(income), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Total Pengeluaran: "+formatRupiah(expense), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Saldo: "+formatRupiah(income-expense), "", 1, "L", false, 0, "")

	if doc.Err() {
		return fmt.Errorf("render pdf: %w", doc.Error())
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
