package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kas/internal/core"
)

const xlsxSheet = "Finances"

// WriteXLSX renders the transactions as a spreadsheet with the same
// column order as the CSV report. Cells keep their native types, so no
// comma sanitization is needed here; amounts are numeric for formulas.
func WriteXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"date", "type", "category", "description", "amount", "method", "note"}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range txs {
		row := []any{
			t.Date.String(),
			string(t.Type),
			t.Category,
			t.Description,
			float64(t.Amount.Cents) / 100,
			string(t.Method),
			t.Note,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
