package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS daily_logs (
	agent_id   TEXT    NOT NULL,
	log_date   TEXT    NOT NULL,
	attended   INTEGER NOT NULL DEFAULT 0,
	calls      INTEGER NOT NULL DEFAULT 0,
	behavior   INTEGER NOT NULL DEFAULT 0,
	meetings   INTEGER NOT NULL DEFAULT 0,
	sales_egp  REAL    NOT NULL DEFAULT 0,
	leads      INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (agent_id, log_date)
);

CREATE INDEX IF NOT EXISTS idx_daily_logs_date ON daily_logs(log_date);

CREATE TABLE IF NOT EXISTS computation_records (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	inputs     TEXT NOT NULL,
	result     TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_computation_records_kind ON computation_records(kind, created_at);
CREATE INDEX IF NOT EXISTS idx_computation_records_subject ON computation_records(subject);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDailyLogs(ctx context.Context, logs []kpi.DailyLog) (int64, error) {
	logs, err := prepareLogs(logs)
	if err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_logs (agent_id, log_date, attended, calls, behavior, meetings, sales_egp, leads, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, log_date) DO UPDATE SET
			attended = excluded.attended,
			calls = excluded.calls,
			behavior = excluded.behavior,
			meetings = excluded.meetings,
			sales_egp = excluded.sales_egp,
			leads = excluded.leads,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert daily log")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range logs {
		if _, err := stmt.ExecContext(ctx,
			l.AgentID, l.Date.Format(dateLayout), l.Attended,
			l.Calls, l.Behavior, l.Meetings, l.SalesEGP, l.Leads, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert daily log %s %s", l.AgentID, l.Date.Format(dateLayout))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit daily logs")
	}
	return int64(len(logs)), nil
}

func (s *SQLiteStore) ListDailyLogs(ctx context.Context, filter LogFilter) ([]kpi.DailyLog, error) {
	query := `SELECT agent_id, log_date, attended, calls, behavior, meetings, sales_egp, leads FROM daily_logs WHERE 1=1`
	var args []any

	if filter.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if !filter.Month.IsZero() {
		query += ` AND log_date >= ? AND log_date < ?`
		args = append(args, filter.Month.Start().Format(dateLayout), filter.Month.End().Format(dateLayout))
	}
	query += ` ORDER BY agent_id, log_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list daily logs")
	}
	defer rows.Close()

	var logs []kpi.DailyLog
	for rows.Next() {
		var l kpi.DailyLog
		var date string
		if err := rows.Scan(&l.AgentID, &date, &l.Attended, &l.Calls, &l.Behavior, &l.Meetings, &l.SalesEGP, &l.Leads); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan daily log")
		}
		if l.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse log date %q", date)
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list daily logs iterate")
}

func (s *SQLiteStore) ListAgents(ctx context.Context, month kpi.Month) ([]string, error) {
	query := `SELECT DISTINCT agent_id FROM daily_logs`
	var args []any
	if !month.IsZero() {
		query += ` WHERE log_date >= ? AND log_date < ?`
		args = append(args, month.Start().Format(dateLayout), month.End().Format(dateLayout))
	}
	query += ` ORDER BY agent_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list agents")
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan agent")
		}
		agents = append(agents, id)
	}
	return agents, eris.Wrap(rows.Err(), "sqlite: list agents iterate")
}

const sqliteInsertRecord = `INSERT INTO computation_records (id, kind, subject, inputs, result, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) RecordComputation(ctx context.Context, rec *model.ComputationRecord) error {
	if err := prepareRecord(rec, time.Now().UTC()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, sqliteInsertRecord, recordArgs(rec)...)
	return eris.Wrapf(err, "sqlite: insert computation record %s", rec.ID)
}

func (s *SQLiteStore) RecordComputations(ctx context.Context, recs []*model.ComputationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, rec := range recs {
		if err := prepareRecord(rec, now); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, sqliteInsertRecord, recordArgs(rec)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert computation record %s", rec.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit computation records")
}

func recordArgs(rec *model.ComputationRecord) []any {
	var result any
	if len(rec.Result) > 0 {
		result = string(rec.Result)
	}
	return []any{rec.ID, string(rec.Kind), rec.Subject, string(rec.Inputs), result, rec.Error, rec.CreatedAt}
}

func (s *SQLiteStore) ListComputations(ctx context.Context, filter RecordFilter) ([]model.ComputationRecord, error) {
	query := `SELECT id, kind, subject, inputs, result, error, created_at FROM computation_records WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, filter.Subject)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list computation records")
	}
	defer rows.Close()

	var recs []model.ComputationRecord
	for rows.Next() {
		var r model.ComputationRecord
		var kind, inputs string
		var result sql.NullString
		if err := rows.Scan(&r.ID, &kind, &r.Subject, &inputs, &result, &r.Error, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan computation record")
		}
		r.Kind = model.ComputationKind(kind)
		r.Inputs = []byte(inputs)
		if result.Valid {
			r.Result = []byte(result.String)
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list computation records iterate")
}
