package kpi

import (
	"math"

	"github.com/sells-group/brokerage-cli/internal/calcerr"
)

// Score projects one agent's logs for one calendar month into MonthlyKPIs.
//
// Zero logs is a *calcerr.InsufficientDataError, never a zero score. Logs that
// span more than one agent or month, or invalid weights, are a
// *calcerr.ValidationError. Each percentage is a met/expected ratio scaled to
// 0-100 and clamped.
func Score(logs []DailyLog, w ScoreWeights) (MonthlyKPIs, error) {
	if len(logs) == 0 {
		return MonthlyKPIs{}, &calcerr.InsufficientDataError{}
	}

	agentID := logs[0].AgentID
	month := MonthOf(logs[0].Date)
	for _, l := range logs[1:] {
		if l.AgentID != agentID {
			return MonthlyKPIs{}, calcerr.Invalid("agent_id", "logs span more than one agent")
		}
		if !month.Contains(l.Date) {
			return MonthlyKPIs{}, calcerr.Invalid("date", "logs span more than one calendar month")
		}
	}
	if err := ValidateWeights(w); err != nil {
		return MonthlyKPIs{}, err
	}

	// Summed as float64 so huge counts saturate at 100% instead of wrapping.
	var attended, calls, behavior, meetings, sales float64
	for _, l := range logs {
		if l.Attended {
			attended++
		}
		calls += float64(l.Calls)
		behavior += float64(l.Behavior)
		meetings += float64(l.Meetings)
		sales += l.SalesEGP
	}

	t := w.Targets
	days := float64(t.WorkingDays)

	return MonthlyKPIs{
		AgentID:         agentID,
		Month:           month,
		LogCount:        len(logs),
		AttendanceMonth: percent(attended, days),
		CallsMonth:      percent(calls, float64(t.DailyCalls)*days),
		BehaviorMonth:   percent(behavior, float64(t.DailyBehavior)*days),
		MeetingsMonth:   percent(meetings, float64(t.DailyMeetings)*days),
		SalesScore:      percent(sales, t.MonthlySalesEGP),
		LeadsInfo:       leadsInfo(logs),
	}, nil
}

// percent returns 100*met/expected clamped to [0,100].
func percent(met, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	p := met / expected * 100
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(100, math.Max(0, p))
}

func leadsInfo(logs []DailyLog) LeadsInfo {
	var info LeadsInfo
	active := make(map[string]bool)
	for _, l := range logs {
		if l.Leads > 0 {
			if info.LeadsTotal > math.MaxInt-l.Leads {
				info.LeadsTotal = math.MaxInt
			} else {
				info.LeadsTotal += l.Leads
			}
			active[l.Date.Format("2006-01-02")] = true
		}
	}
	info.LeadsDaysActive = len(active)
	return info
}

// ScoreAgent filters logs down to agentID and month before scoring. An empty
// selection reports which agent and month had nothing recorded.
func ScoreAgent(agentID string, month Month, logs []DailyLog, w ScoreWeights) (MonthlyKPIs, error) {
	if agentID == "" {
		return MonthlyKPIs{}, calcerr.Invalid("agent_id", "is required")
	}
	if month.IsZero() {
		return MonthlyKPIs{}, calcerr.Invalid("month", "is required")
	}
	var selected []DailyLog
	for _, l := range logs {
		if l.AgentID == agentID && month.Contains(l.Date) {
			selected = append(selected, l)
		}
	}
	if len(selected) == 0 {
		return MonthlyKPIs{}, &calcerr.InsufficientDataError{AgentID: agentID, Month: month.String()}
	}
	return Score(selected, w)
}
