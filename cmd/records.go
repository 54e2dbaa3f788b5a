package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brokerage-cli/internal/model"
	"github.com/sells-group/brokerage-cli/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the computation audit trail",
}

var (
	recordsKind    string
	recordsSubject string
	recordsLimit   int
	recordsOffset  int
	recordsFormat  string
)

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded computations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkFormat(recordsFormat, formatTable, formatJSON); err != nil {
			return err
		}
		kind := model.ComputationKind(recordsKind)
		if kind != "" && !kind.Valid() {
			return eris.Errorf("unknown kind %q (want breakeven or kpi)", recordsKind)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := st.ListComputations(ctx, store.RecordFilter{
			Kind:    kind,
			Subject: recordsSubject,
			Limit:   recordsLimit,
			Offset:  recordsOffset,
		})
		if err != nil {
			return err
		}
		if recordsFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), recs)
		}
		return writeRecordsTable(cmd.OutOrStdout(), recs)
	},
}

func writeRecordsTable(w io.Writer, recs []model.ComputationRecord) error {
	header := fmt.Sprintf("%-36s %-10s %-20s %-20s %s\n", "ID", "Kind", "Subject", "Created", "Status")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "write records header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 100)); err != nil {
		return eris.Wrap(err, "write records separator")
	}
	for _, r := range recs {
		status := "ok"
		if r.Failed() {
			status = "error: " + r.Error
		}
		line := fmt.Sprintf("%-36s %-10s %-20s %-20s %s\n",
			r.ID, r.Kind, r.Subject, r.CreatedAt.Format("2006-01-02 15:04:05"), status)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "write records row")
		}
	}
	return nil
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsKind, "kind", "", "breakeven or kpi")
	recordsListCmd.Flags().StringVar(&recordsSubject, "subject", "", "branch name or agent id")
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 20, "max records to show")
	recordsListCmd.Flags().IntVar(&recordsOffset, "offset", 0, "records to skip")
	recordsListCmd.Flags().StringVar(&recordsFormat, "format", formatTable, "output format: table, json")

	recordsCmd.AddCommand(recordsListCmd)
	rootCmd.AddCommand(recordsCmd)
}
