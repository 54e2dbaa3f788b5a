package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/audit"
	"github.com/sells-group/brokerage-cli/internal/importer"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/report"
	"github.com/sells-group/brokerage-cli/internal/store"
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Score agents from their daily activity logs",
}

var (
	kpiAgent    string
	kpiMonth    string
	kpiLogsFile string
	kpiRoster   []string
	kpiFormat   string
	kpiOut      string
)

var kpiScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one agent for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkFormat(kpiFormat, formatTable, formatJSON); err != nil {
			return err
		}
		month, err := kpi.ParseMonth(kpiMonth)
		if err != nil {
			return err
		}

		logs, rec, done, err := loadLogs(ctx, store.LogFilter{AgentID: kpiAgent, Month: month})
		if err != nil {
			return err
		}
		defer done()

		w := configWeights()
		k, err := kpi.ScoreAgent(kpiAgent, month, logs, w)
		if err != nil {
			rec.KPI(ctx, kpiAgent, month, len(logs), w, nil, err)
			return err
		}
		rec.KPI(ctx, kpiAgent, month, len(logs), w, &k, nil)

		score := w.Composite(k)
		if kpiFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), scoreResponse{KPIs: k, Score: score, Weights: w.Name})
		}
		return report.WriteKPITable(cmd.OutOrStdout(), k, score)
	},
}

var kpiLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank every agent for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkFormat(kpiFormat, formatTable, formatJSON, formatCSV, formatPDF); err != nil {
			return err
		}
		if kpiFormat == formatPDF && kpiOut == "" {
			return eris.New("--out is required for pdf output")
		}
		month, err := kpi.ParseMonth(kpiMonth)
		if err != nil {
			return err
		}

		logs, rec, done, err := loadLogs(ctx, store.LogFilter{Month: month})
		if err != nil {
			return err
		}
		defer done()

		w := configWeights()
		board, err := buildLeaderboard(ctx, rec, month, kpiRoster, logs, w)
		if err != nil {
			return err
		}

		return writeTo(cmd.OutOrStdout(), kpiOut, func(out io.Writer) error {
			return writeLeaderboard(out, kpiFormat, board, w)
		})
	},
}

// leaderboardResponse is the leaderboard as both the CLI and the API return it.
type leaderboardResponse struct {
	Month     kpi.Month      `json:"month"`
	Weights   string         `json:"weights"`
	Standings []kpi.Standing `json:"standings"`
	NoData    []string       `json:"no_data,omitempty"`
}

type scoreResponse struct {
	KPIs    kpi.MonthlyKPIs `json:"kpis"`
	Score   float64         `json:"score"`
	Weights string          `json:"weights,omitempty"`
}

func buildLeaderboard(ctx context.Context, rec *audit.Recorder, month kpi.Month, roster []string, logs []kpi.DailyLog, w kpi.ScoreWeights) (*leaderboardResponse, error) {
	res, err := kpi.ScoreMonth(ctx, month, roster, logs, w, cfg.Batch.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	rec.KPIBatch(ctx, res, w)

	standings := kpi.Leaderboard(res.KPIs, w)
	zap.L().Info("kpi: leaderboard built",
		zap.String("month", month.String()),
		zap.String("weights", w.Name),
		zap.Int("ranked", len(standings)),
		zap.Int("no_data", len(res.NoData)),
	)
	return &leaderboardResponse{
		Month:     month,
		Weights:   w.Name,
		Standings: standings,
		NoData:    res.NoData,
	}, nil
}

func writeLeaderboard(w io.Writer, format string, board *leaderboardResponse, weights kpi.ScoreWeights) error {
	switch format {
	case formatJSON:
		return writeJSON(w, board)
	case formatCSV:
		return report.WriteLeaderboardCSV(w, board.Standings)
	case formatPDF:
		return report.LeaderboardPDF(w, board.Month, weights, board.Standings)
	}
	if err := report.WriteLeaderboardTable(w, board.Standings); err != nil {
		return err
	}
	if len(board.NoData) > 0 {
		if _, err := fmt.Fprintf(w, "\nNo logs recorded: %v\n", board.NoData); err != nil {
			return eris.Wrap(err, "write no-data agents")
		}
	}
	return nil
}

// loadLogs reads logs from --logs when given, otherwise from the store.
// The recorder writes to the store either way when the audit trail is on.
func loadLogs(ctx context.Context, filter store.LogFilter) ([]kpi.DailyLog, *audit.Recorder, func(), error) {
	if kpiLogsFile != "" {
		logs, err := importer.ReadDailyLogs(ctx, kpiLogsFile)
		if err != nil {
			return nil, nil, nil, err
		}
		rec, done := openRecorder(ctx)
		return logs, rec, done, nil
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	done := func() { st.Close() } //nolint:errcheck
	logs, err := st.ListDailyLogs(ctx, filter)
	if err != nil {
		done()
		return nil, nil, nil, err
	}
	return logs, initRecorder(st), done, nil
}

func init() {
	for _, c := range []*cobra.Command{kpiScoreCmd, kpiLeaderboardCmd} {
		c.Flags().StringVar(&kpiMonth, "month", "", "calendar month, YYYY-MM")
		c.Flags().StringVar(&kpiLogsFile, "logs", "", "read logs from a CSV or XLSX file instead of the store")
		_ = c.MarkFlagRequired("month")
		kpiCmd.AddCommand(c)
	}

	kpiScoreCmd.Flags().StringVar(&kpiAgent, "agent", "", "agent id")
	kpiScoreCmd.Flags().StringVar(&kpiFormat, "format", formatTable, "output format: table, json")
	_ = kpiScoreCmd.MarkFlagRequired("agent")

	kpiLeaderboardCmd.Flags().StringSliceVar(&kpiRoster, "roster", nil, "agents to rank; agents without logs are reported separately")
	kpiLeaderboardCmd.Flags().StringVar(&kpiFormat, "format", formatTable, "output format: table, json, csv, pdf")
	kpiLeaderboardCmd.Flags().StringVar(&kpiOut, "out", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(kpiCmd)
}
