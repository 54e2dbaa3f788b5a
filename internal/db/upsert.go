package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed bulk write into Table.
type UpsertConfig struct {
	Table        string   // optionally schema-qualified, e.g. "brokerage.daily_logs"
	Columns      []string // every column in each row, in row order
	ConflictKeys []string // the unique key rows collide on
	UpdateCols   []string // overwritten on collision; nil means every non-key column
}

// upsertPlan is the SQL for one UpsertConfig.
type upsertPlan struct {
	temp      pgx.Identifier
	createSQL string
	insertSQL string
}

func planUpsert(cfg UpsertConfig) (upsertPlan, error) {
	if cfg.Table == "" {
		return upsertPlan{}, eris.New("db: upsert: no table specified")
	}
	if len(cfg.Columns) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no conflict keys specified")
	}

	update := cfg.UpdateCols
	if update == nil {
		update = withoutKeys(cfg.Columns, cfg.ConflictKeys)
	}

	target := sanitizeTable(cfg.Table)
	temp := pgx.Identifier{"_tmp_upsert_" + strings.ReplaceAll(cfg.Table, ".", "_")}
	cols := quoteAndJoin(cfg.Columns)

	var b strings.Builder
	b.WriteString("INSERT INTO " + target + " (" + cols + ") SELECT " + cols + " FROM " + temp.Sanitize())
	b.WriteString(" ON CONFLICT (" + quoteAndJoin(cfg.ConflictKeys) + ")")
	if len(update) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		sets := make([]string, len(update))
		for i, c := range update {
			q := pgx.Identifier{c}.Sanitize()
			sets[i] = q + " = EXCLUDED." + q
		}
		b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	}

	return upsertPlan{
		temp:      temp,
		createSQL: "CREATE TEMP TABLE " + temp.Sanitize() + " (LIKE " + target + " INCLUDING DEFAULTS) ON COMMIT DROP",
		insertSQL: b.String(),
	}, nil
}

// BulkUpsert writes rows in one transaction: COPY into a temp table shaped
// like the target, then INSERT ... ON CONFLICT from it. Rows must not repeat
// a conflict key. It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	plan, err := planUpsert(cfg)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, plan.createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, plan.temp, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}
	tag, err := tx.Exec(ctx, plan.insertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func withoutKeys(cols, keys []string) []string {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	var out []string
	for _, c := range cols {
		if !skip[c] {
			out = append(out, c)
		}
	}
	return out
}

func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
