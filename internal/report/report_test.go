package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/kpi"
)

func branchInputs() breakeven.Inputs {
	return breakeven.Inputs{
		Agents: 5, TeamLeaders: 1,
		Rent: 5000, Salary: 3000, TeamLeaderShare: 1000, Others: 500, Marketing: 1000, SIM: 200,
		FranchiseOwnerSalary: 10000,
		GrossRate:            0.03, AgentCommPer1M: 5000, TLCommPer1M: 3000,
		Withholding: 0.05, VAT: 0.14, IncomeTax: 0.07,
	}
}

func batchResults(t *testing.T) []breakeven.BranchResult {
	t.Helper()
	bad := branchInputs()
	bad.IncomeTax = 0.5
	results, err := breakeven.ComputeAll(context.Background(), []breakeven.Branch{
		{Name: "Maadi", Inputs: branchInputs()},
		{Name: "Zamalek", Inputs: bad},
	}, 2)
	require.NoError(t, err)
	return results
}

func standings() []kpi.Standing {
	month := kpi.Month{Year: 2025, Month: time.March}
	return kpi.Leaderboard([]kpi.MonthlyKPIs{
		{AgentID: "a1", Month: month, AttendanceMonth: 100, CallsMonth: 50, SalesScore: 80, LeadsInfo: kpi.LeadsInfo{LeadsTotal: 3, LeadsDaysActive: 2}},
		{AgentID: "a2", Month: month, AttendanceMonth: 40},
	}, kpi.DefaultWeights())
}

func TestFormatEGP(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999.5, "999.50"},
		{63500, "63,500.00"},
		{4471830.985915493, "4,471,830.99"},
		{-1234567.1, "-1,234,567.10"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEGP(tt.in))
		})
	}
	assert.Equal(t, "55.5%", FormatPercent(55.46))
}

func TestWriteBreakEvenTable(t *testing.T) {
	res, err := breakeven.Compute(branchInputs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBreakEvenTable(&buf, "Maadi", res))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Maadi\n"))
	assert.Contains(t, out, "Net revenue per 1M sold")
	assert.Contains(t, out, "14,200.00")
	assert.Contains(t, out, "Break-even sales: 4,471,830.99 EGP (4.47 million)")

	assert.Error(t, WriteBreakEvenTable(&buf, "", nil))
}

func TestWriteBatchTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatchTable(&buf, batchResults(t)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Maadi")
	assert.Contains(t, lines[2], "4,471,830.99")
	assert.Contains(t, lines[3], "Zamalek")
	assert.Contains(t, lines[3], "error: income_tax must be between 0.07 and 0.12")
}

func TestWriteBreakEvenCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBreakEvenCSV(&buf, batchResults(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "break_even_sales_egp", records[0][4])
	assert.Equal(t, "Maadi", records[1][0])
	assert.Equal(t, "63500", records[1][2])
	assert.Equal(t, "14200", records[1][3])
	assert.True(t, strings.HasPrefix(records[1][4], "4471830.98"))
	assert.Empty(t, records[1][6])
	assert.Empty(t, records[2][4])
	assert.Contains(t, records[2][6], "income_tax")
}

func TestWriteKPITable(t *testing.T) {
	s := standings()[0]
	var buf bytes.Buffer
	require.NoError(t, WriteKPITable(&buf, s.KPIs, s.Score))
	out := buf.String()
	assert.Contains(t, out, "Agent:      a1")
	assert.Contains(t, out, "Month:      2025-03")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "Score:      46.00 / 100")
	assert.Contains(t, out, "Leads:      3 over 2 days (not scored)")
}

func TestWriteLeaderboardTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboardTable(&buf, standings()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[2]), "1  a1"))
	assert.Contains(t, lines[2], "46.00")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[3]), "2  a2"))
}

func TestWriteLeaderboardCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboardCSV(&buf, standings()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "a1", "2025-03", "46", "100", "50", "0", "0", "80", "3", "2"}, records[1])
}

func TestPDFs(t *testing.T) {
	res, err := breakeven.Compute(branchInputs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, BreakEvenPDF(&buf, "Maadi", res))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, BatchPDF(&buf, "", batchResults(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, LeaderboardPDF(&buf, kpi.Month{Year: 2025, Month: time.March}, kpi.DefaultWeights(), standings()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.Error(t, BreakEvenPDF(&buf, "", nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
