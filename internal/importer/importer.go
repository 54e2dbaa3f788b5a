// Package importer loads daily activity logs from CSV and XLSX sheets.
package importer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/sheet"
)

// Columns recognised in the header row. agent_id and date are required;
// any other missing column reads as zero.
const (
	ColAgentID  = "agent_id"
	ColDate     = "date"
	ColAttended = "attended"
	ColCalls    = "calls"
	ColBehavior = "behavior"
	ColMeetings = "meetings"
	ColSalesEGP = "sales_egp"
	ColLeads    = "leads"
)

var knownColumns = []string{ColAgentID, ColDate, ColAttended, ColCalls, ColBehavior, ColMeetings, ColSalesEGP, ColLeads}

// maxRowErrors caps how many bad rows one parse reports.
const maxRowErrors = 25

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "2-Jan-2006"}

// RowError points at the offending cell. Row is 1-based and counts the
// header.
type RowError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d, column %s: %s (got %q)", e.Row, e.Column, e.Reason, e.Value)
}

// ReadDailyLogs reads path, choosing the parser by extension (.csv, .xlsx).
func ReadDailyLogs(ctx context.Context, path string) ([]kpi.DailyLog, error) {
	var rows [][]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "importer: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = sheet.ReadCSV(ctx, f, sheet.CSVOptions{TrimSpace: true, Comment: '#'})
	case ".xlsx":
		rows, err = sheet.ReadXLSX(path, sheet.XLSXOptions{})
	default:
		return nil, eris.Errorf("importer: unsupported file type %q (want .csv or .xlsx)", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}

	logs, err := ParseRows(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: %s", filepath.Base(path))
	}

	zap.L().Info("importer: read daily logs",
		zap.String("path", path),
		zap.Int("rows", len(logs)),
	)
	return logs, nil
}

// ParseRows maps a header row plus data rows to daily logs. Header names are
// matched case-insensitively in any order. Blank rows are skipped.
//
// Every bad row is reported by its first bad cell, up to maxRowErrors, as a
// joined error of *RowError values.
func ParseRows(rows [][]string) ([]kpi.DailyLog, error) {
	if len(rows) == 0 {
		return nil, eris.New("no header row")
	}

	idx, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	logs := make([]kpi.DailyLog, 0, len(rows)-1)
	var errs []error
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		p := rowParser{row: row, idx: idx, n: i + 2}
		l := kpi.DailyLog{
			AgentID:  p.text(ColAgentID),
			Date:     p.date(ColDate),
			Attended: p.boolean(ColAttended),
			Calls:    p.count(ColCalls),
			Behavior: p.count(ColBehavior),
			Meetings: p.count(ColMeetings),
			SalesEGP: p.money(ColSalesEGP),
			Leads:    p.count(ColLeads),
		}
		if p.err == nil && l.AgentID == "" {
			p.err = &RowError{Row: p.n, Column: ColAgentID, Reason: "is required"}
		}
		if p.err != nil {
			errs = append(errs, p.err)
			if len(errs) == maxRowErrors {
				errs = append(errs, eris.Errorf("stopped after %d bad rows", maxRowErrors))
				break
			}
			continue
		}
		logs = append(logs, l)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return logs, nil
}

func mapHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		if _, dup := idx[name]; dup && name != "" {
			return nil, &RowError{Row: 1, Column: name, Value: h, Reason: "duplicate column"}
		}
		idx[name] = i
	}
	for _, req := range []string{ColAgentID, ColDate} {
		if _, ok := idx[req]; !ok {
			return nil, &RowError{Row: 1, Reason: fmt.Sprintf("missing required column %s (known columns: %s)", req, strings.Join(knownColumns, ", "))}
		}
	}
	return idx, nil
}

// rowParser keeps the first error so a row is reported once, at its first
// bad cell.
type rowParser struct {
	row []string
	idx map[string]int
	n   int
	err error
}

func (p *rowParser) cell(col string) string {
	i, ok := p.idx[col]
	if !ok || i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) fail(col, value, reason string) {
	if p.err == nil {
		p.err = &RowError{Row: p.n, Column: col, Value: value, Reason: reason}
	}
}

func (p *rowParser) text(col string) string {
	return p.cell(col)
}

func (p *rowParser) date(col string) time.Time {
	v := p.cell(col)
	if v == "" {
		p.fail(col, v, "is required")
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	if t, ok := sheet.ExcelSerialDate(v); ok {
		return t
	}
	p.fail(col, v, "is not a date (want YYYY-MM-DD)")
	return time.Time{}
}

func (p *rowParser) boolean(col string) bool {
	v := strings.ToLower(p.cell(col))
	switch v {
	case "", "0", "false", "no", "n", "f":
		return false
	case "1", "true", "yes", "y", "t":
		return true
	default:
		p.fail(col, v, "must be true/false, yes/no or 1/0")
		return false
	}
}

func (p *rowParser) count(col string) int {
	v := p.cell(col)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Spreadsheets often hand back whole numbers as "3.0".
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			p.fail(col, v, "must be a whole number")
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		p.fail(col, v, "must be >= 0")
		return 0
	}
	return n
}

func (p *rowParser) money(col string) float64 {
	v := strings.ReplaceAll(p.cell(col), ",", "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(col, p.cell(col), "must be a number")
		return 0
	}
	if f < 0 {
		p.fail(col, p.cell(col), "must be >= 0")
		return 0
	}
	return f
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
