// Package audit writes every computation to the store's audit trail.
//
// Recording is best effort: a failed write is retried on transient errors,
// then logged. It never changes the computation result the caller returns.
package audit

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/calcerr"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
	"github.com/sells-group/brokerage-cli/internal/resilience"
)

// Writer is the part of store.Store the recorder needs.
type Writer interface {
	RecordComputation(ctx context.Context, rec *model.ComputationRecord) error
	RecordComputations(ctx context.Context, recs []*model.ComputationRecord) error
}

// Recorder turns engine calls into computation records. A nil *Recorder
// records nothing.
type Recorder struct {
	w     Writer
	retry resilience.RetryConfig
}

// New returns a Recorder writing to w, trying each write up to attempts times.
func New(w Writer, attempts int) *Recorder {
	cfg := resilience.WithAttempts(attempts)
	cfg.OnRetry = resilience.RetryLogger("audit: record computation")
	return &Recorder{w: w, retry: cfg}
}

type kpiInputs struct {
	AgentID  string           `json:"agent_id"`
	Month    kpi.Month        `json:"month"`
	LogCount int              `json:"log_count"`
	Weights  kpi.ScoreWeights `json:"weights"`
}

// BreakEven records one break-even computation. subject is the branch name,
// empty for ad-hoc runs.
func (r *Recorder) BreakEven(ctx context.Context, subject string, in breakeven.Inputs, res *breakeven.Result, err error) {
	if r == nil {
		return
	}
	r.write(ctx, newRecord(model.KindBreakEven, subject, in, res, err))
}

// BreakEvenBatch records every branch of a batch run in one write. results
// must be in branch order, as ComputeAll returns them.
func (r *Recorder) BreakEvenBatch(ctx context.Context, branches []breakeven.Branch, results []breakeven.BranchResult) {
	if r == nil || len(results) == 0 || len(branches) != len(results) {
		return
	}
	recs := make([]*model.ComputationRecord, 0, len(results))
	for i, br := range results {
		recs = append(recs, newRecord(model.KindBreakEven, br.Branch, branches[i].Inputs, br.Result, br.Err))
	}
	r.writeBatch(ctx, recs)
}

// KPI records one agent-month scoring. logCount is the number of logs the
// engine was given.
func (r *Recorder) KPI(ctx context.Context, agentID string, month kpi.Month, logCount int, w kpi.ScoreWeights, res *kpi.MonthlyKPIs, err error) {
	if r == nil {
		return
	}
	in := kpiInputs{AgentID: agentID, Month: month, LogCount: logCount, Weights: w}
	r.write(ctx, newRecord(model.KindKPI, agentID, in, res, err))
}

// KPIBatch records a month of scores, including agents that had no logs.
func (r *Recorder) KPIBatch(ctx context.Context, res *kpi.BatchResult, w kpi.ScoreWeights) {
	if r == nil || res == nil {
		return
	}
	recs := make([]*model.ComputationRecord, 0, len(res.KPIs)+len(res.NoData))
	for i := range res.KPIs {
		k := &res.KPIs[i]
		in := kpiInputs{AgentID: k.AgentID, Month: res.Month, LogCount: k.LogCount, Weights: w}
		recs = append(recs, newRecord(model.KindKPI, k.AgentID, in, k, nil))
	}
	for _, id := range res.NoData {
		in := kpiInputs{AgentID: id, Month: res.Month, Weights: w}
		noData := &calcerr.InsufficientDataError{AgentID: id, Month: res.Month.String()}
		recs = append(recs, newRecord(model.KindKPI, id, in, nil, noData))
	}
	if len(recs) == 0 {
		return
	}
	r.writeBatch(ctx, recs)
}

// newRecord marshals inputs and result. Result is only kept when err is nil;
// a marshal failure leaves the field empty.
func newRecord(kind model.ComputationKind, subject string, inputs, result any, err error) *model.ComputationRecord {
	rec := &model.ComputationRecord{Kind: kind, Subject: subject}
	if b, mErr := json.Marshal(inputs); mErr == nil {
		rec.Inputs = b
	}
	if err != nil {
		rec.Error = err.Error()
	} else if result != nil {
		if b, mErr := json.Marshal(result); mErr == nil {
			rec.Result = b
		}
	}
	return rec
}

func (r *Recorder) write(ctx context.Context, rec *model.ComputationRecord) {
	err := resilience.Do(ctx, r.retry, func(ctx context.Context) error {
		return r.w.RecordComputation(ctx, rec)
	})
	if err != nil {
		zap.L().Warn("audit: record computation failed",
			zap.String("kind", string(rec.Kind)),
			zap.String("subject", rec.Subject),
			zap.Error(err),
		)
	}
}

func (r *Recorder) writeBatch(ctx context.Context, recs []*model.ComputationRecord) {
	err := resilience.Do(ctx, r.retry, func(ctx context.Context) error {
		return r.w.RecordComputations(ctx, recs)
	})
	if err != nil {
		zap.L().Warn("audit: record computations failed",
			zap.String("kind", string(recs[0].Kind)),
			zap.Int("count", len(recs)),
			zap.Error(err),
		)
	}
}
