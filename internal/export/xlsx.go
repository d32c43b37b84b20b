package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of generated workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is one worksheet: a bold header row followed by data rows.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// WriteXLSX renders tables into a workbook and writes it to w.
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("export: no tables")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for i, table := range tables {
		name := table.Sheet
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", name, err)
		}

		sw, err := f.NewStreamWriter(name)
		if err != nil {
			return fmt.Errorf("export: stream writer: %w", err)
		}
		header := make([]any, len(table.Headers))
		for j, h := range table.Headers {
			header[j] = excelize.Cell{StyleID: bold, Value: h}
		}
		if err := sw.SetRow("A1", header); err != nil {
			return fmt.Errorf("export: header row: %w", err)
		}
		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, row); err != nil {
				return fmt.Errorf("export: row %d: %w", r+1, err)
			}
		}
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("export: flush %s: %w", name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
