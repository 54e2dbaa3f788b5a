// Package kpi scores sales agents from their daily activity logs.
//
// The engine reports five percentage components per agent and month. How they
// blend into a single leaderboard number is a caller-supplied ScoreWeights
// strategy, not part of the engine.
//
// Percentages are clamped to [0,100] rather than rejected: duplicate or
// over-reported log entries are tolerated. This is the opposite of the
// break-even calculator, which fails on any out-of-bound input.
package kpi

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// DailyLog is one agent's activity record for one day.
type DailyLog struct {
	AgentID  string    `json:"agent_id"`
	Date     time.Time `json:"date"`
	Attended bool      `json:"attended"`
	Calls    int       `json:"calls"`
	Behavior int       `json:"behavior"`
	Meetings int       `json:"meetings"`
	SalesEGP float64   `json:"sales_egp"`

	// Leads is informational and never scored.
	Leads int `json:"leads"`
}

// UnmarshalJSON accepts a plain "YYYY-MM-DD" date as well as RFC 3339.
func (l *DailyLog) UnmarshalJSON(b []byte) error {
	type plain DailyLog
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		l.Date = time.Time{}
		return nil
	}
	if d, err := time.Parse("2006-01-02", aux.Date); err == nil {
		l.Date = d
		return nil
	}
	d, err := time.Parse(time.RFC3339, aux.Date)
	if err != nil {
		return eris.Errorf("kpi: daily log date %q (want YYYY-MM-DD)", aux.Date)
	}
	l.Date = d
	return nil
}

// LeadsInfo is reported next to the scores for context only.
type LeadsInfo struct {
	LeadsTotal      int `json:"leads_total"`
	LeadsDaysActive int `json:"leads_days_active"`
}

// MonthlyKPIs is the projection of one agent's month of logs.
type MonthlyKPIs struct {
	AgentID  string `json:"agent_id"`
	Month    Month  `json:"month"`
	LogCount int    `json:"log_count"`

	AttendanceMonth float64 `json:"attendance_month"`
	CallsMonth      float64 `json:"calls_month"`
	BehaviorMonth   float64 `json:"behavior_month"`
	MeetingsMonth   float64 `json:"meetings_month"`
	SalesScore      float64 `json:"sales_score"`

	LeadsInfo LeadsInfo `json:"leads_info"`
}

// Components returns the scored percentages keyed by component name.
func (k MonthlyKPIs) Components() map[string]float64 {
	return map[string]float64{
		"attendance": k.AttendanceMonth,
		"calls":      k.CallsMonth,
		"behavior":   k.BehaviorMonth,
		"meetings":   k.MeetingsMonth,
		"sales":      k.SalesScore,
	}
}
