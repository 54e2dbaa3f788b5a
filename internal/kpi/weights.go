package kpi

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/brokerage-cli/internal/calcerr"
	"github.com/sells-group/brokerage-cli/internal/config"
)

// Targets define the "expected" side of every component ratio.
type Targets struct {
	WorkingDays     int     `json:"working_days" yaml:"working_days"`
	DailyCalls      int     `json:"daily_calls" yaml:"daily_calls"`
	DailyBehavior   int     `json:"daily_behavior" yaml:"daily_behavior"`
	DailyMeetings   int     `json:"daily_meetings" yaml:"daily_meetings"`
	MonthlySalesEGP float64 `json:"monthly_sales_egp" yaml:"monthly_sales_egp"`
}

// ScoreWeights is a named weighting strategy for the leaderboard, together
// with the targets the component percentages are measured against.
type ScoreWeights struct {
	Name       string  `json:"name,omitempty" yaml:"name"`
	Attendance float64 `json:"attendance" yaml:"attendance"`
	Calls      float64 `json:"calls" yaml:"calls"`
	Behavior   float64 `json:"behavior" yaml:"behavior"`
	Meetings   float64 `json:"meetings" yaml:"meetings"`
	Sales      float64 `json:"sales" yaml:"sales"`
	Targets    Targets `json:"targets" yaml:"targets"`
}

// DefaultWeights returns an even 20/20/20/20/20 split over a 22 working-day
// month. Weights sum to 100.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Name:       "even",
		Attendance: 20,
		Calls:      20,
		Behavior:   20,
		Meetings:   20,
		Sales:      20,
		Targets: Targets{
			WorkingDays:     22,
			DailyCalls:      30,
			DailyBehavior:   5,
			DailyMeetings:   2,
			MonthlySalesEGP: 5_000_000,
		},
	}
}

// WeightsFromConfig converts the kpi config section. Zero-valued fields fall
// back to DefaultWeights.
func WeightsFromConfig(c config.KPIConfig) ScoreWeights {
	w := DefaultWeights()
	if c.Name != "" {
		w.Name = c.Name
	}
	if c.AttendanceWeight+c.CallsWeight+c.BehaviorWeight+c.MeetingsWeight+c.SalesWeight > 0 {
		w.Attendance = c.AttendanceWeight
		w.Calls = c.CallsWeight
		w.Behavior = c.BehaviorWeight
		w.Meetings = c.MeetingsWeight
		w.Sales = c.SalesWeight
	}
	if c.WorkingDays > 0 {
		w.Targets.WorkingDays = c.WorkingDays
	}
	if c.DailyCalls > 0 {
		w.Targets.DailyCalls = c.DailyCalls
	}
	if c.DailyBehavior > 0 {
		w.Targets.DailyBehavior = c.DailyBehavior
	}
	if c.DailyMeetings > 0 {
		w.Targets.DailyMeetings = c.DailyMeetings
	}
	if c.MonthlySalesEGP > 0 {
		w.Targets.MonthlySalesEGP = c.MonthlySalesEGP
	}
	return w
}

// Sum returns the total of the component weights.
func (w ScoreWeights) Sum() float64 {
	return w.Attendance + w.Calls + w.Behavior + w.Meetings + w.Sales
}

// ValidateWeights checks a weighting strategy and its targets. Every problem
// is reported in a single *calcerr.ValidationError.
func ValidateWeights(w ScoreWeights) error {
	var errs []string

	weights := []struct {
		name  string
		value float64
	}{
		{"attendance", w.Attendance},
		{"calls", w.Calls},
		{"behavior", w.Behavior},
		{"meetings", w.Meetings},
		{"sales", w.Sales},
	}
	for _, c := range weights {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", c.name))
		}
	}
	if sum := w.Sum(); !(sum > 0) || math.IsInf(sum, 0) {
		errs = append(errs, "weight sum must be > 0")
	}

	t := w.Targets
	if t.WorkingDays <= 0 || t.WorkingDays > 31 {
		errs = append(errs, "working_days must be between 1 and 31")
	}
	if t.DailyCalls <= 0 {
		errs = append(errs, "daily_calls must be > 0")
	}
	if t.DailyBehavior <= 0 {
		errs = append(errs, "daily_behavior must be > 0")
	}
	if t.DailyMeetings <= 0 {
		errs = append(errs, "daily_meetings must be > 0")
	}
	if !(t.MonthlySalesEGP > 0) || math.IsInf(t.MonthlySalesEGP, 0) {
		errs = append(errs, "monthly_sales_egp must be > 0")
	}

	if len(errs) > 0 {
		return calcerr.Invalid("weights", "invalid: "+strings.Join(errs, "; "))
	}
	return nil
}

// Composite blends the five component percentages into a single 0-100
// leaderboard score, normalised by the weight sum and rounded to 2 decimals.
func (w ScoreWeights) Composite(k MonthlyKPIs) float64 {
	sum := w.Sum()
	if sum <= 0 {
		return 0
	}
	total := k.AttendanceMonth*w.Attendance +
		k.CallsMonth*w.Calls +
		k.BehaviorMonth*w.Behavior +
		k.MeetingsMonth*w.Meetings +
		k.SalesScore*w.Sales
	return math.Round(total/sum*100) / 100
}
