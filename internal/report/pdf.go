package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/kpi"
)

var (
	headerFill = [3]int{31, 56, 100}
	rowFill    = [3]int{240, 240, 240}
	bodyText   = [3]int{33, 33, 33}
)

func newPDF(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 UTC"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, "  "+title, "", 1, "L", true, 0, "")
	pdf.Ln(6)
	pdf.SetTextColor(bodyText[0], bodyText[1], bodyText[2])
	return pdf
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, cols []string) {
	pdf.SetFont("Arial", "B", 9)
	for i, c := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, c, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
}

func tableRow(pdf *gofpdf.Fpdf, widths []float64, cells []string, shade bool) {
	pdf.SetFillColor(rowFill[0], rowFill[1], rowFill[2])
	for i, c := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, c, "", 0, align, shade, 0, "")
	}
	pdf.Ln(-1)
}

// BreakEvenPDF renders the derivation of one break-even result.
func BreakEvenPDF(w io.Writer, title string, res *breakeven.Result) error {
	if res == nil {
		return eris.New("report: nil break-even result")
	}
	if title == "" {
		title = "Break-even analysis"
	}
	pdf := newPDF(title)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := []float64{70, 70, 50}
	tableHeader(pdf, widths, []string{"Step", "Formula", "EGP"})
	for i, s := range res.Steps {
		tableRow(pdf, widths, []string{tr(s.Label), tr(s.Formula), FormatEGP(s.Value)}, i%2 == 1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Break-even: %s EGP", FormatEGP(res.BreakEvenSalesEGP)), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s million EGP of monthly sales", FormatEGP(res.BreakEvenSalesMillion)), "", 1, "L", false, 0, "")

	return eris.Wrap(pdf.Output(w), "report: write break-even pdf")
}

// BatchPDF renders a batch recompute, one row per branch.
func BatchPDF(w io.Writer, title string, results []breakeven.BranchResult) error {
	if title == "" {
		title = "Break-even by branch"
	}
	pdf := newPDF(title)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := []float64{60, 50, 30, 50}
	tableHeader(pdf, widths, []string{"Branch", "Break-even (EGP)", "Million", "Net rev / 1M"})
	for i, r := range results {
		if r.Err != nil {
			pdf.SetTextColor(192, 0, 0)
			pdf.CellFormat(widths[0], 6, tr(r.Branch), "", 0, "L", i%2 == 1, 0, "")
			pdf.CellFormat(widths[1]+widths[2]+widths[3], 6, tr(r.Err.Error()), "", 1, "L", i%2 == 1, 0, "")
			pdf.SetTextColor(bodyText[0], bodyText[1], bodyText[2])
			continue
		}
		tableRow(pdf, widths, []string{
			tr(r.Branch),
			FormatEGP(r.Result.BreakEvenSalesEGP),
			FormatEGP(r.Result.BreakEvenSalesMillion),
			FormatEGP(r.Result.NetRevPer1M),
		}, i%2 == 1)
	}

	return eris.Wrap(pdf.Output(w), "report: write batch pdf")
}

// LeaderboardPDF renders ranked standings for a month.
func LeaderboardPDF(w io.Writer, month kpi.Month, weights kpi.ScoreWeights, standings []kpi.Standing) error {
	pdf := newPDF(fmt.Sprintf("Agent leaderboard %s", month))
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Weighting %q: attendance %g, calls %g, behavior %g, meetings %g, sales %g",
		weights.Name, weights.Attendance, weights.Calls, weights.Behavior, weights.Meetings, weights.Sales)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{14, 46, 22, 22, 22, 22, 22, 20}
	tableHeader(pdf, widths, []string{"Rank", "Agent", "Score", "Attend", "Calls", "Behavior", "Meetings", "Sales"})
	for i, s := range standings {
		k := s.KPIs
		tableRow(pdf, widths, []string{
			fmt.Sprintf("%d", s.Rank),
			tr(s.AgentID),
			fmt.Sprintf("%.2f", s.Score),
			fmt.Sprintf("%.1f", k.AttendanceMonth),
			fmt.Sprintf("%.1f", k.CallsMonth),
			fmt.Sprintf("%.1f", k.BehaviorMonth),
			fmt.Sprintf("%.1f", k.MeetingsMonth),
			fmt.Sprintf("%.1f", k.SalesScore),
		}, i%2 == 1)
	}

	return eris.Wrap(pdf.Output(w), "report: write leaderboard pdf")
}
