package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/importer"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/report"
	"github.com/sells-group/brokerage-cli/internal/store"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Import and inspect daily activity logs",
}

var logsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import daily logs from a CSV or XLSX sheet",
	Long: `Imports daily logs keyed by agent and date. Re-importing a day replaces it.

Columns (any order, case-insensitive): agent_id, date, attended, calls,
behavior, meetings, sales_egp, leads.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logs, err := importer.ReadDailyLogs(ctx, args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertDailyLogs(ctx, logs)
		if err != nil {
			return err
		}
		zap.L().Info("logs: import complete",
			zap.String("file", args[0]),
			zap.Int("rows", len(logs)),
			zap.Int64("upserted", n),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d daily logs from %s\n", n, args[0])
		return nil
	},
}

var (
	logsAgent  string
	logsMonth  string
	logsFormat string
)

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored daily logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkFormat(logsFormat, formatTable, formatJSON); err != nil {
			return err
		}

		filter := store.LogFilter{AgentID: logsAgent}
		if logsMonth != "" {
			m, err := kpi.ParseMonth(logsMonth)
			if err != nil {
				return err
			}
			filter.Month = m
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		logs, err := st.ListDailyLogs(ctx, filter)
		if err != nil {
			return err
		}
		if logsFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), logs)
		}
		return writeLogsTable(cmd.OutOrStdout(), logs)
	},
}

func writeLogsTable(w io.Writer, logs []kpi.DailyLog) error {
	header := fmt.Sprintf("%-16s %-10s %-8s %6s %8s %8s %18s %6s\n",
		"Agent", "Date", "Attended", "Calls", "Behavior", "Meetings", "Sales (EGP)", "Leads")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "write logs header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 88)); err != nil {
		return eris.Wrap(err, "write logs separator")
	}
	for _, l := range logs {
		attended := "no"
		if l.Attended {
			attended = "yes"
		}
		line := fmt.Sprintf("%-16s %-10s %-8s %6d %8d %8d %18s %6d\n",
			l.AgentID, l.Date.Format("2006-01-02"), attended,
			l.Calls, l.Behavior, l.Meetings, report.FormatEGP(l.SalesEGP), l.Leads)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "write logs row")
		}
	}
	return nil
}

func init() {
	logsListCmd.Flags().StringVar(&logsAgent, "agent", "", "only this agent")
	logsListCmd.Flags().StringVar(&logsMonth, "month", "", "only this month, YYYY-MM")
	logsListCmd.Flags().StringVar(&logsFormat, "format", formatTable, "output format: table, json")

	logsCmd.AddCommand(logsImportCmd, logsListCmd)
	rootCmd.AddCommand(logsCmd)
}
