package sheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet to read. SheetName wins over SheetIndex.
type XLSXOptions struct {
	SheetIndex int
	SheetName  string
}

// ReadXLSX returns every row of one worksheet as strings. Trailing empty
// rows are dropped.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open xlsx %s", path)
	}

	sh, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, cellStrings(row))
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sh, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("sheet: worksheet %q not found", opts.SheetName)
		}
		return sh, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("sheet: worksheet index %d out of range (file has %d)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// cellStrings renders date-formatted cells as YYYY-MM-DD so callers never
// see raw Excel serial numbers.
func cellStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		if c.IsTime() {
			if t, err := c.GetTime(false); err == nil {
				cells[i] = t.Format("2006-01-02")
				continue
			}
		}
		cells[i] = strings.TrimSpace(c.String())
	}
	return cells
}

// ExcelSerialDate converts an Excel 1900-system serial day number, as found
// in unformatted date cells, to a UTC date.
func ExcelSerialDate(s string) (time.Time, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 || v > 2958465 {
		return time.Time{}, false
	}
	t := xlsx.TimeFromExcelTime(v, false)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
