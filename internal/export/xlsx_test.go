package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, Table{
		Sheet:   "Users",
		Headers: []string{"id", "user_name", "departments"},
		Rows: [][]any{
			{"u1", "Ann", "Sales, Support"},
			{"u2", "Bo", ""},
		},
	}, Table{
		Sheet:   "Summary",
		Headers: []string{"total"},
		Rows:    [][]any{{2}},
	})
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != "Users" || sheets[1] != "Summary" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows("Users")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][1] != "user_name" || rows[1][2] != "Sales, Support" {
		t.Fatalf("unexpected rows %v", rows)
	}
	total, _ := f.GetCellValue("Summary", "A2")
	if total != "2" {
		t.Fatalf("unexpected summary total %q", total)
	}
}

func TestWriteXLSXRequiresTable(t *testing.T) {
	if err := WriteXLSX(&bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without tables")
	}
}
