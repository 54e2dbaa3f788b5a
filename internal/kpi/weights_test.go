package kpi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brokerage-cli/internal/calcerr"
	"github.com/sells-group/brokerage-cli/internal/config"
)

func TestDefaultWeightsValid(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, ValidateWeights(w))
	assert.InDelta(t, 100, w.Sum(), 1e-9)
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(config.KPIConfig{
		Name:             "sales-heavy",
		AttendanceWeight: 10,
		CallsWeight:      10,
		BehaviorWeight:   10,
		MeetingsWeight:   10,
		SalesWeight:      60,
		WorkingDays:      24,
	})
	assert.Equal(t, "sales-heavy", w.Name)
	assert.Equal(t, 60.0, w.Sales)
	assert.Equal(t, 24, w.Targets.WorkingDays)
	// Unset targets keep their defaults.
	assert.Equal(t, 30, w.Targets.DailyCalls)
	assert.Equal(t, 5_000_000.0, w.Targets.MonthlySalesEGP)
}

func TestWeightsFromEmptyConfig(t *testing.T) {
	assert.Equal(t, DefaultWeights(), WeightsFromConfig(config.KPIConfig{}))
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScoreWeights)
		want   string
	}{
		{"negative weight", func(w *ScoreWeights) { w.Calls = -1 }, "calls weight must be >= 0"},
		{"nan weight", func(w *ScoreWeights) { w.Sales = math.NaN() }, "sales weight must be >= 0"},
		{"all zero", func(w *ScoreWeights) { *w = ScoreWeights{Targets: w.Targets} }, "weight sum must be > 0"},
		{"working days", func(w *ScoreWeights) { w.Targets.WorkingDays = 32 }, "working_days must be between 1 and 31"},
		{"daily calls", func(w *ScoreWeights) { w.Targets.DailyCalls = 0 }, "daily_calls must be > 0"},
		{"daily behavior", func(w *ScoreWeights) { w.Targets.DailyBehavior = -2 }, "daily_behavior must be > 0"},
		{"daily meetings", func(w *ScoreWeights) { w.Targets.DailyMeetings = 0 }, "daily_meetings must be > 0"},
		{"sales target", func(w *ScoreWeights) { w.Targets.MonthlySalesEGP = math.Inf(1) }, "monthly_sales_egp must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			err := ValidateWeights(w)
			var ve *calcerr.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "weights", ve.Field)
			assert.Contains(t, ve.Reason, tt.want)
		})
	}
}

func TestValidateWeightsCollectsAll(t *testing.T) {
	w := DefaultWeights()
	w.Calls = -1
	w.Targets.DailyMeetings = 0
	err := ValidateWeights(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calls weight must be >= 0; daily_meetings must be > 0")
}

func TestComposite(t *testing.T) {
	k := MonthlyKPIs{
		AttendanceMonth: 100,
		CallsMonth:      50,
		BehaviorMonth:   0,
		MeetingsMonth:   25,
		SalesScore:      80,
	}

	even := DefaultWeights()
	assert.InDelta(t, 51, even.Composite(k), 1e-9)

	// Weights are normalised, so scaling them changes nothing.
	scaled := even
	scaled.Attendance, scaled.Calls, scaled.Behavior, scaled.Meetings, scaled.Sales = 1, 1, 1, 1, 1
	assert.InDelta(t, even.Composite(k), scaled.Composite(k), 1e-9)

	salesOnly := ScoreWeights{Sales: 1}
	assert.InDelta(t, 80, salesOnly.Composite(k), 1e-9)

	assert.Equal(t, 0.0, ScoreWeights{}.Composite(k))
}

func TestCompositeRounds(t *testing.T) {
	w := ScoreWeights{Attendance: 1, Calls: 2}
	k := MonthlyKPIs{AttendanceMonth: 100, CallsMonth: 0}
	assert.Equal(t, 33.33, w.Composite(k))
}
