package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/kpi"
)

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteBreakEvenCSV writes one row per branch. Figures are unrounded.
func WriteBreakEvenCSV(w io.Writer, results []breakeven.BranchResult) error {
	cw := csv.NewWriter(w)

	header := []string{"branch", "cost_per_seat", "total_operating_cost", "net_rev_per_1m", "break_even_sales_egp", "break_even_sales_million", "error"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, r := range results {
		row := []string{r.Branch, "", "", "", "", "", ""}
		if r.Err != nil {
			row[6] = r.Err.Error()
		} else {
			row[1] = ftoa(r.Result.CostPerSeat)
			row[2] = ftoa(r.Result.TotalOperatingCost)
			row[3] = ftoa(r.Result.NetRevPer1M)
			row[4] = ftoa(r.Result.BreakEvenSalesEGP)
			row[5] = ftoa(r.Result.BreakEvenSalesMillion)
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

// WriteLeaderboardCSV writes ranked standings with every component.
func WriteLeaderboardCSV(w io.Writer, standings []kpi.Standing) error {
	cw := csv.NewWriter(w)

	header := []string{"rank", "agent_id", "month", "score", "attendance_month", "calls_month", "behavior_month", "meetings_month", "sales_score", "leads_total", "leads_days_active"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, s := range standings {
		k := s.KPIs
		row := []string{
			strconv.Itoa(s.Rank),
			s.AgentID,
			k.Month.String(),
			ftoa(s.Score),
			ftoa(k.AttendanceMonth),
			ftoa(k.CallsMonth),
			ftoa(k.BehaviorMonth),
			ftoa(k.MeetingsMonth),
			ftoa(k.SalesScore),
			strconv.Itoa(k.LeadsInfo.LeadsTotal),
			strconv.Itoa(k.LeadsInfo.LeadsDaysActive),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}
