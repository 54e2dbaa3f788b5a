package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var march = kpi.Month{Year: 2025, Month: time.March}

// --- Daily logs ---

func TestSQLite_UpsertAndListDailyLogs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertDailyLogs(ctx, []kpi.DailyLog{
		{AgentID: "a2", Date: date(2025, 3, 2), Attended: true, Calls: 10, Behavior: 2, Meetings: 1, SalesEGP: 125000.5, Leads: 4},
		{AgentID: "a1", Date: date(2025, 3, 1), Attended: false, Calls: 3},
		{AgentID: "a1", Date: date(2025, 4, 1), Attended: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	logs, err := st.ListDailyLogs(ctx, LogFilter{Month: march})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a1", logs[0].AgentID)
	assert.Equal(t, kpi.DailyLog{
		AgentID: "a2", Date: date(2025, 3, 2), Attended: true, Calls: 10, Behavior: 2, Meetings: 1, SalesEGP: 125000.5, Leads: 4,
	}, logs[1])

	logs, err = st.ListDailyLogs(ctx, LogFilter{AgentID: "a1"})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = st.ListDailyLogs(ctx, LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestSQLite_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertDailyLogs(ctx, []kpi.DailyLog{{AgentID: "a1", Date: date(2025, 3, 5), Calls: 3}})
	require.NoError(t, err)

	// Same key, later in the day, different values.
	_, err = st.UpsertDailyLogs(ctx, []kpi.DailyLog{{AgentID: "a1", Date: time.Date(2025, 3, 5, 17, 30, 0, 0, time.UTC), Calls: 9, Attended: true}})
	require.NoError(t, err)

	logs, err := st.ListDailyLogs(ctx, LogFilter{AgentID: "a1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 9, logs[0].Calls)
	assert.True(t, logs[0].Attended)
	assert.Equal(t, date(2025, 3, 5), logs[0].Date)
}

func TestSQLite_UpsertDuplicateInBatchLastWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertDailyLogs(ctx, []kpi.DailyLog{
		{AgentID: "a1", Date: date(2025, 3, 5), Calls: 1},
		{AgentID: "a1", Date: date(2025, 3, 5), Calls: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	logs, err := st.ListDailyLogs(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].Calls)
}

func TestSQLite_UpsertRejectsIncompleteLogs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertDailyLogs(ctx, []kpi.DailyLog{{Date: date(2025, 3, 1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent_id")

	_, err = st.UpsertDailyLogs(ctx, []kpi.DailyLog{{AgentID: "a1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no date")

	n, err := st.UpsertDailyLogs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_ListAgents(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertDailyLogs(ctx, []kpi.DailyLog{
		{AgentID: "b", Date: date(2025, 3, 1)},
		{AgentID: "a", Date: date(2025, 3, 2)},
		{AgentID: "a", Date: date(2025, 3, 3)},
		{AgentID: "c", Date: date(2025, 2, 28)},
	})
	require.NoError(t, err)

	agents, err := st.ListAgents(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, agents)

	agents, err = st.ListAgents(ctx, kpi.Month{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, agents)
}

// --- Computation records ---

func TestSQLite_RecordAndListComputations(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ok := &model.ComputationRecord{
		Kind:      model.KindBreakEven,
		Subject:   "Maadi",
		Inputs:    json.RawMessage(`{"agents":10}`),
		Result:    json.RawMessage(`{"break_even_sales_egp":4471830.99}`),
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.RecordComputation(ctx, ok))
	assert.NotEmpty(t, ok.ID)

	failed := &model.ComputationRecord{
		Kind:      model.KindKPI,
		Subject:   "a1",
		Inputs:    json.RawMessage(`{"month":"2025-03"}`),
		Error:     "no daily logs recorded for agent a1 in 2025-03",
		CreatedAt: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.RecordComputation(ctx, failed))

	recs, err := st.ListComputations(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, failed.ID, recs[0].ID, "newest first")
	assert.True(t, recs[0].Failed())
	assert.Nil(t, recs[0].Result)
	assert.Equal(t, ok.CreatedAt, recs[1].CreatedAt.UTC())
	assert.JSONEq(t, `{"break_even_sales_egp":4471830.99}`, string(recs[1].Result))

	recs, err = st.ListComputations(ctx, RecordFilter{Kind: model.KindBreakEven})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Maadi", recs[0].Subject)

	recs, err = st.ListComputations(ctx, RecordFilter{Subject: "a1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = st.ListComputations(ctx, RecordFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ok.ID, recs[0].ID)
}

func TestSQLite_RecordComputationsBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	recs := []*model.ComputationRecord{
		{Kind: model.KindBreakEven, Subject: "Maadi", Inputs: json.RawMessage(`{}`)},
		{Kind: model.KindBreakEven, Subject: "Zamalek"},
	}
	require.NoError(t, st.RecordComputations(ctx, recs))
	assert.NotEqual(t, recs[0].ID, recs[1].ID)

	got, err := st.ListComputations(ctx, RecordFilter{Kind: model.KindBreakEven})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, st.RecordComputations(ctx, nil))
}

func TestSQLite_RecordComputationRejectsUnknownKind(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.RecordComputation(context.Background(), &model.ComputationRecord{Kind: "payroll"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown computation kind")

	assert.Error(t, st.RecordComputation(context.Background(), nil))
}

func TestSQLite_PingAndMigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Migrate(context.Background()))
}
