package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/kpi"
)

// WriteBreakEvenTable prints the labeled derivation steps followed by the
// break-even point.
func WriteBreakEvenTable(w io.Writer, title string, res *breakeven.Result) error {
	if res == nil {
		return eris.New("report: nil break-even result")
	}
	if title != "" {
		if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
			return eris.Wrap(err, "report: write title")
		}
	}
	if _, err := fmt.Fprintf(w, "%-36s %20s\n%s\n", "Step", "Value (EGP)", strings.Repeat("-", 57)); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	for _, s := range res.Steps {
		if _, err := fmt.Fprintf(w, "%-36s %20s\n", s.Label, FormatEGP(s.Value)); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	_, err := fmt.Fprintf(w, "\nBreak-even sales: %s EGP (%s million)\n",
		FormatEGP(res.BreakEvenSalesEGP), FormatEGP(res.BreakEvenSalesMillion))
	return eris.Wrap(err, "report: write summary")
}

// WriteBatchTable prints one line per branch; failed branches show their
// error instead of a figure.
func WriteBatchTable(w io.Writer, results []breakeven.BranchResult) error {
	header := fmt.Sprintf("%-24s %20s %12s %18s\n", "Branch", "Break-even (EGP)", "Million", "Net rev / 1M")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 77)); err != nil {
		return eris.Wrap(err, "report: write table separator")
	}
	for _, r := range results {
		var line string
		if r.Err != nil {
			line = fmt.Sprintf("%-24s error: %s\n", truncate(r.Branch, 24), r.Err)
		} else {
			line = fmt.Sprintf("%-24s %20s %12s %18s\n", truncate(r.Branch, 24),
				FormatEGP(r.Result.BreakEvenSalesEGP), FormatEGP(r.Result.BreakEvenSalesMillion), FormatEGP(r.Result.NetRevPer1M))
		}
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	return nil
}

// WriteKPITable prints one agent's component scores.
func WriteKPITable(w io.Writer, k kpi.MonthlyKPIs, score float64) error {
	lines := []string{
		fmt.Sprintf("Agent:      %s", k.AgentID),
		fmt.Sprintf("Month:      %s", k.Month),
		fmt.Sprintf("Logs:       %d", k.LogCount),
		"",
		fmt.Sprintf("  %-12s %8s", "attendance", FormatPercent(k.AttendanceMonth)),
		fmt.Sprintf("  %-12s %8s", "calls", FormatPercent(k.CallsMonth)),
		fmt.Sprintf("  %-12s %8s", "behavior", FormatPercent(k.BehaviorMonth)),
		fmt.Sprintf("  %-12s %8s", "meetings", FormatPercent(k.MeetingsMonth)),
		fmt.Sprintf("  %-12s %8s", "sales", FormatPercent(k.SalesScore)),
		"",
		fmt.Sprintf("Score:      %.2f / 100", score),
		fmt.Sprintf("Leads:      %d over %d days (not scored)", k.LeadsInfo.LeadsTotal, k.LeadsInfo.LeadsDaysActive),
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return eris.Wrap(err, "report: write kpi table")
}

// WriteLeaderboardTable prints ranked standings.
func WriteLeaderboardTable(w io.Writer, standings []kpi.Standing) error {
	header := fmt.Sprintf("%4s  %-20s %7s %7s %7s %7s %7s %7s\n",
		"Rank", "Agent", "Score", "Attend", "Calls", "Behav", "Meet", "Sales")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 76)); err != nil {
		return eris.Wrap(err, "report: write table separator")
	}
	for _, s := range standings {
		k := s.KPIs
		line := fmt.Sprintf("%4d  %-20s %7.2f %7.1f %7.1f %7.1f %7.1f %7.1f\n",
			s.Rank, truncate(s.AgentID, 20), s.Score,
			k.AttendanceMonth, k.CallsMonth, k.BehaviorMonth, k.MeetingsMonth, k.SalesScore)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
