package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brokerage-cli/internal/db"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS daily_logs (
	agent_id   TEXT        NOT NULL,
	log_date   DATE        NOT NULL,
	attended   BOOLEAN     NOT NULL DEFAULT false,
	calls      INTEGER     NOT NULL DEFAULT 0,
	behavior   INTEGER     NOT NULL DEFAULT 0,
	meetings   INTEGER     NOT NULL DEFAULT 0,
	sales_egp  DOUBLE PRECISION NOT NULL DEFAULT 0,
	leads      INTEGER     NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (agent_id, log_date)
);

CREATE INDEX IF NOT EXISTS idx_daily_logs_date ON daily_logs(log_date);

CREATE TABLE IF NOT EXISTS computation_records (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT        NOT NULL,
	subject    TEXT        NOT NULL DEFAULT '',
	inputs     JSONB       NOT NULL,
	result     JSONB,
	error      TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_computation_records_kind ON computation_records(kind, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_computation_records_subject ON computation_records(subject);
`

var dailyLogColumns = []string{"agent_id", "log_date", "attended", "calls", "behavior", "meetings", "sales_egp", "leads", "updated_at"}

var recordColumns = []string{"id", "kind", "subject", "inputs", "result", "error", "created_at"}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertDailyLogs writes logs through a COPY into a temp table followed by
// INSERT ... ON CONFLICT, so a whole import is one round of statements.
func (s *PostgresStore) UpsertDailyLogs(ctx context.Context, logs []kpi.DailyLog) (int64, error) {
	logs, err := prepareLogs(logs)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([][]any, len(logs))
	for i, l := range logs {
		rows[i] = []any{l.AgentID, l.Date, l.Attended, l.Calls, l.Behavior, l.Meetings, l.SalesEGP, l.Leads, now}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "daily_logs",
		Columns:      dailyLogColumns,
		ConflictKeys: []string{"agent_id", "log_date"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert daily logs")
}

func (s *PostgresStore) ListDailyLogs(ctx context.Context, filter LogFilter) ([]kpi.DailyLog, error) {
	query := `SELECT agent_id, log_date, attended, calls, behavior, meetings, sales_egp, leads FROM daily_logs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.AgentID != "" {
		query += fmt.Sprintf(` AND agent_id = $%d`, argIdx)
		args = append(args, filter.AgentID)
		argIdx++
	}
	if !filter.Month.IsZero() {
		query += fmt.Sprintf(` AND log_date >= $%d AND log_date < $%d`, argIdx, argIdx+1)
		args = append(args, filter.Month.Start(), filter.Month.End())
	}
	query += ` ORDER BY agent_id, log_date`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list daily logs")
	}
	defer rows.Close()

	var logs []kpi.DailyLog
	for rows.Next() {
		var l kpi.DailyLog
		if err := rows.Scan(&l.AgentID, &l.Date, &l.Attended, &l.Calls, &l.Behavior, &l.Meetings, &l.SalesEGP, &l.Leads); err != nil {
			return nil, eris.Wrap(err, "postgres: scan daily log")
		}
		l.Date = logDate(l.Date)
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list daily logs iterate")
}

func (s *PostgresStore) ListAgents(ctx context.Context, month kpi.Month) ([]string, error) {
	query := `SELECT DISTINCT agent_id FROM daily_logs`
	var args []any
	if !month.IsZero() {
		query += ` WHERE log_date >= $1 AND log_date < $2`
		args = append(args, month.Start(), month.End())
	}
	query += ` ORDER BY agent_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list agents")
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan agent")
		}
		agents = append(agents, id)
	}
	return agents, eris.Wrap(rows.Err(), "postgres: list agents iterate")
}

func (s *PostgresStore) RecordComputation(ctx context.Context, rec *model.ComputationRecord) error {
	if err := prepareRecord(rec, time.Now().UTC()); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO computation_records (id, kind, subject, inputs, result, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pgRecordRow(rec)...,
	)
	return eris.Wrapf(err, "postgres: insert computation record %s", rec.ID)
}

// RecordComputations writes a batch with COPY.
func (s *PostgresStore) RecordComputations(ctx context.Context, recs []*model.ComputationRecord) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		if err := prepareRecord(rec, now); err != nil {
			return err
		}
		rows = append(rows, pgRecordRow(rec))
	}
	_, err := db.CopyFrom(ctx, s.pool, "computation_records", recordColumns, rows)
	return eris.Wrap(err, "postgres: record computations")
}

func pgRecordRow(rec *model.ComputationRecord) []any {
	var result any
	if len(rec.Result) > 0 {
		result = []byte(rec.Result)
	}
	return []any{rec.ID, string(rec.Kind), rec.Subject, []byte(rec.Inputs), result, rec.Error, rec.CreatedAt}
}

func (s *PostgresStore) ListComputations(ctx context.Context, filter RecordFilter) ([]model.ComputationRecord, error) {
	query := `SELECT id, kind, subject, inputs, result, error, created_at FROM computation_records WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Subject != "" {
		query += fmt.Sprintf(` AND subject = $%d`, argIdx)
		args = append(args, filter.Subject)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list computation records")
	}
	defer rows.Close()

	var recs []model.ComputationRecord
	for rows.Next() {
		var r model.ComputationRecord
		var kind string
		var inputs []byte
		var result *[]byte
		if err := rows.Scan(&r.ID, &kind, &r.Subject, &inputs, &result, &r.Error, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan computation record")
		}
		r.Kind = model.ComputationKind(kind)
		r.Inputs = inputs
		if result != nil {
			r.Result = *result
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list computation records iterate")
}
