// Package store persists daily activity logs and the computation audit trail.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
)

// LogFilter selects daily logs. Zero fields match everything.
type LogFilter struct {
	AgentID string    `json:"agent_id,omitempty"`
	Month   kpi.Month `json:"month,omitempty"`
}

// RecordFilter selects computation records, newest first.
type RecordFilter struct {
	Kind    model.ComputationKind `json:"kind,omitempty"`
	Subject string                `json:"subject,omitempty"`
	Limit   int                   `json:"limit,omitempty"`
	Offset  int                   `json:"offset,omitempty"`
}

// Store defines the persistence interface behind the CLI and HTTP API.
type Store interface {
	// Daily logs are keyed by (agent_id, date); writing an existing key
	// replaces it.
	UpsertDailyLogs(ctx context.Context, logs []kpi.DailyLog) (int64, error)
	ListDailyLogs(ctx context.Context, filter LogFilter) ([]kpi.DailyLog, error)
	ListAgents(ctx context.Context, month kpi.Month) ([]string, error)

	// Computation records
	RecordComputation(ctx context.Context, rec *model.ComputationRecord) error
	RecordComputations(ctx context.Context, recs []*model.ComputationRecord) error
	ListComputations(ctx context.Context, filter RecordFilter) ([]model.ComputationRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// logDate truncates t to its calendar date in UTC, keeping t's own
// year/month/day.
func logDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// prepareLogs validates logs and collapses duplicate keys, last write wins.
// Output is ordered by agent then date.
func prepareLogs(logs []kpi.DailyLog) ([]kpi.DailyLog, error) {
	type key struct {
		agent string
		date  time.Time
	}
	byKey := make(map[key]kpi.DailyLog, len(logs))
	for i, l := range logs {
		if l.AgentID == "" {
			return nil, eris.Errorf("store: daily log %d has no agent_id", i+1)
		}
		if l.Date.IsZero() {
			return nil, eris.Errorf("store: daily log %d for %s has no date", i+1, l.AgentID)
		}
		l.Date = logDate(l.Date)
		byKey[key{l.AgentID, l.Date}] = l
	}

	out := make([]kpi.DailyLog, 0, len(byKey))
	for _, l := range byKey {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// prepareRecord fills the id and timestamp and checks the kind.
func prepareRecord(rec *model.ComputationRecord, now time.Time) error {
	if rec == nil {
		return eris.New("store: nil computation record")
	}
	if !rec.Kind.Valid() {
		return eris.Errorf("store: unknown computation kind %q", rec.Kind)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if len(rec.Inputs) == 0 {
		rec.Inputs = []byte("null")
	}
	return nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
