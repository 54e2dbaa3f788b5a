package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/calcerr"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
	"github.com/sells-group/brokerage-cli/internal/resilience"
)

type fakeWriter struct {
	mu       sync.Mutex
	recs     []*model.ComputationRecord
	batches  int
	failures []error
	calls    int
}

func (f *fakeWriter) next() error {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return nil
}

func (f *fakeWriter) RecordComputation(_ context.Context, rec *model.ComputationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeWriter) RecordComputations(_ context.Context, recs []*model.ComputationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return err
	}
	f.batches++
	f.recs = append(f.recs, recs...)
	return nil
}

func newTestRecorder(w Writer, attempts int) *Recorder {
	r := New(w, attempts)
	r.retry.InitialBackoff = time.Millisecond
	r.retry.MaxBackoff = time.Millisecond
	return r
}

func sampleInputs() breakeven.Inputs {
	return breakeven.Inputs{
		Agents: 10, TeamLeaders: 2,
		Rent: 50000, Salary: 5000, TeamLeaderShare: 1000, Others: 500, Marketing: 1000, SIM: 200,
		FranchiseOwnerSalary: 0,
		GrossRate: 0.025, AgentCommPer1M: 4000, TLCommPer1M: 1000,
		Withholding: 0.05, VAT: 0.14, IncomeTax: 0.1,
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.BreakEven(context.Background(), "x", breakeven.Inputs{}, nil, nil)
		r.BreakEvenBatch(context.Background(), []breakeven.Branch{{}}, []breakeven.BranchResult{{}})
		r.KPI(context.Background(), "a1", kpi.Month{}, 0, kpi.DefaultWeights(), nil, nil)
		r.KPIBatch(context.Background(), &kpi.BatchResult{}, kpi.DefaultWeights())
	})
}

func TestBreakEvenSuccess(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRecorder(w, 3)

	in := sampleInputs()
	res, err := breakeven.Compute(in)
	require.NoError(t, err)

	r.BreakEven(context.Background(), "Maadi", in, res, nil)

	require.Len(t, w.recs, 1)
	rec := w.recs[0]
	assert.Equal(t, model.KindBreakEven, rec.Kind)
	assert.Equal(t, "Maadi", rec.Subject)
	assert.Empty(t, rec.Error)

	var gotIn breakeven.Inputs
	require.NoError(t, json.Unmarshal(rec.Inputs, &gotIn))
	assert.Equal(t, in, gotIn)

	var gotRes breakeven.Result
	require.NoError(t, json.Unmarshal(rec.Result, &gotRes))
	assert.Equal(t, res.BreakEvenSalesEGP, gotRes.BreakEvenSalesEGP)
}

func TestBreakEvenFailureKeepsMessage(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRecorder(w, 3)

	in := sampleInputs()
	in.Agents = 0
	_, err := breakeven.Compute(in)
	require.Error(t, err)

	r.BreakEven(context.Background(), "", in, nil, err)

	require.Len(t, w.recs, 1)
	assert.Equal(t, "agents must be at least 1", w.recs[0].Error)
	assert.Empty(t, w.recs[0].Result)
}

func TestRetriesTransientWrites(t *testing.T) {
	w := &fakeWriter{failures: []error{
		resilience.NewTransientError(errors.New("database is locked")),
		resilience.NewTransientError(errors.New("database is locked")),
	}}
	r := newTestRecorder(w, 3)

	r.BreakEven(context.Background(), "Maadi", sampleInputs(), nil, errors.New("boom"))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.recs, 1)
}

func TestGivesUpWithoutPanicking(t *testing.T) {
	w := &fakeWriter{failures: []error{errors.New("disk full")}}
	r := newTestRecorder(w, 3)

	r.KPI(context.Background(), "a1", kpi.Month{Year: 2025, Month: time.March}, 4, kpi.DefaultWeights(), &kpi.MonthlyKPIs{AgentID: "a1"}, nil)
	assert.Equal(t, 1, w.calls, "non-transient errors are not retried")
	assert.Empty(t, w.recs)
}

func TestBreakEvenBatch(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRecorder(w, 1)

	bad := sampleInputs()
	bad.VAT = 2
	branches := []breakeven.Branch{
		{Name: "Maadi", Inputs: sampleInputs()},
		{Name: "Zamalek", Inputs: bad},
	}
	results, err := breakeven.ComputeAll(context.Background(), branches, 2)
	require.NoError(t, err)

	r.BreakEvenBatch(context.Background(), branches, results)

	assert.Equal(t, 1, w.batches)
	require.Len(t, w.recs, 2)
	bySubject := map[string]*model.ComputationRecord{}
	for _, rec := range w.recs {
		bySubject[rec.Subject] = rec
	}
	assert.NotEmpty(t, bySubject["Maadi"].Result)
	assert.Contains(t, bySubject["Zamalek"].Error, "vat")

	var gotIn breakeven.Inputs
	require.NoError(t, json.Unmarshal(bySubject["Zamalek"].Inputs, &gotIn))
	assert.Equal(t, 2.0, gotIn.VAT)
}

func TestKPIBatchIncludesNoData(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRecorder(w, 1)

	month := kpi.Month{Year: 2025, Month: time.March}
	r.KPIBatch(context.Background(), &kpi.BatchResult{
		Month:  month,
		KPIs:   []kpi.MonthlyKPIs{{AgentID: "a1", Month: month, LogCount: 3, CallsMonth: 40}},
		NoData: []string{"a2"},
	}, kpi.DefaultWeights())

	require.Len(t, w.recs, 2)
	assert.Equal(t, "a1", w.recs[0].Subject)
	assert.JSONEq(t, `"2025-03"`, string(mustField(t, w.recs[0].Inputs, "month")))
	assert.Empty(t, w.recs[0].Error)

	assert.Equal(t, "a2", w.recs[1].Subject)
	assert.Equal(t, (&calcerr.InsufficientDataError{AgentID: "a2", Month: "2025-03"}).Error(), w.recs[1].Error)

	// Nothing to write.
	r.KPIBatch(context.Background(), &kpi.BatchResult{Month: month}, kpi.DefaultWeights())
	assert.Equal(t, 1, w.batches)
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}
