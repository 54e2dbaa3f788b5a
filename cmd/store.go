package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/audit"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "brokerage.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initRecorder returns nil when the audit trail is disabled; a nil recorder
// accepts every call and records nothing.
func initRecorder(st store.Store) *audit.Recorder {
	if st == nil || !cfg.Audit.Enabled {
		return nil
	}
	return audit.New(st, cfg.Audit.RetryAttempts)
}

// openRecorder opens the store for commands that only write the audit trail.
// A store that cannot be opened is logged and skipped; the computation still
// runs.
func openRecorder(ctx context.Context) (*audit.Recorder, func()) {
	if !cfg.Audit.Enabled {
		return nil, func() {}
	}
	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("audit: store unavailable, computation will not be recorded", zap.Error(err))
		return nil, func() {}
	}
	return initRecorder(st), func() { st.Close() } //nolint:errcheck
}

func configWeights() kpi.ScoreWeights {
	return kpi.WeightsFromConfig(cfg.KPI)
}
