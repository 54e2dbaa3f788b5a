package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/report"
)

var (
	beInputs breakeven.Inputs
	beBranch string
	beFile   string
	beFormat string
	beOut    string
)

var breakevenCmd = &cobra.Command{
	Use:   "breakeven",
	Short: "Compute the sales volume a branch needs to cover its costs",
	Long: `Computes break-even sales from cost and revenue assumptions.

Assumptions come from flags for a single branch, or from --file for a YAML or
JSON scenario with many branches, recomputed concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		allowed := []string{formatTable, formatJSON, formatCSV, formatPDF}
		if err := checkFormat(beFormat, allowed...); err != nil {
			return err
		}
		if beFormat == formatPDF && beOut == "" {
			return eris.New("--out is required for pdf output")
		}

		rec, closeRec := openRecorder(ctx)
		defer closeRec()

		// --out is only created once there is something to write to it.
		if beFile != "" {
			branches, err := breakeven.LoadScenarioFile(beFile)
			if err != nil {
				return err
			}
			results, err := breakeven.ComputeAll(ctx, branches, cfg.Batch.MaxConcurrency)
			if err != nil {
				return err
			}
			rec.BreakEvenBatch(ctx, branches, results)
			zap.L().Info("breakeven: scenario computed",
				zap.String("file", beFile),
				zap.Int("branches", len(branches)),
			)
			return writeTo(cmd.OutOrStdout(), beOut, func(w io.Writer) error {
				return writeBatch(w, beFormat, results)
			})
		}

		res, err := breakeven.Compute(beInputs)
		rec.BreakEven(ctx, beBranch, beInputs, res, err)
		if err != nil {
			return err
		}
		return writeTo(cmd.OutOrStdout(), beOut, func(w io.Writer) error {
			return writeBreakEven(w, beFormat, beBranch, res)
		})
	},
}

func writeBreakEven(w io.Writer, format, branch string, res *breakeven.Result) error {
	switch format {
	case formatJSON:
		return writeJSON(w, res)
	case formatCSV:
		return report.WriteBreakEvenCSV(w, []breakeven.BranchResult{{Branch: branch, Result: res}})
	case formatPDF:
		return report.BreakEvenPDF(w, branch, res)
	default:
		return report.WriteBreakEvenTable(w, branch, res)
	}
}

func writeBatch(w io.Writer, format string, results []breakeven.BranchResult) error {
	switch format {
	case formatJSON:
		return writeJSON(w, batchJSON(results))
	case formatCSV:
		return report.WriteBreakEvenCSV(w, results)
	case formatPDF:
		return report.BatchPDF(w, "", results)
	default:
		return report.WriteBatchTable(w, results)
	}
}

type branchJSON struct {
	Branch string            `json:"branch"`
	Result *breakeven.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// batchJSON flattens branch errors to their message; error values do not
// marshal.
func batchJSON(results []breakeven.BranchResult) []branchJSON {
	out := make([]branchJSON, len(results))
	for i, r := range results {
		out[i] = branchJSON{Branch: r.Branch, Result: r.Result}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func init() {
	f := breakevenCmd.Flags()
	f.IntVar(&beInputs.Agents, "agents", 0, "number of agent seats")
	f.IntVar(&beInputs.TeamLeaders, "team-leaders", 0, "number of team leaders")
	f.Float64Var(&beInputs.Rent, "rent", 0, "rent per seat (EGP)")
	f.Float64Var(&beInputs.Salary, "salary", 0, "salary per seat (EGP)")
	f.Float64Var(&beInputs.TeamLeaderShare, "team-leader-share", 0, "team leader cost share per seat (EGP)")
	f.Float64Var(&beInputs.Others, "others", 0, "other costs per seat (EGP)")
	f.Float64Var(&beInputs.Marketing, "marketing", 0, "marketing per seat (EGP)")
	f.Float64Var(&beInputs.SIM, "sim", 0, "SIM cost per seat (EGP)")
	f.Float64Var(&beInputs.FranchiseOwnerSalary, "franchise-owner-salary", 0, "franchise owner salary (EGP)")
	f.Float64Var(&beInputs.GrossRate, "gross-rate", 0, "gross commission rate on sales, 0-1")
	f.Float64Var(&beInputs.AgentCommPer1M, "agent-comm", 0, "agent commission per 1,000,000 sold (EGP)")
	f.Float64Var(&beInputs.TLCommPer1M, "tl-comm", 0, "team leader commission per 1,000,000 sold (EGP)")
	f.Float64Var(&beInputs.Withholding, "withholding", 0, "withholding tax rate, 0-1")
	f.Float64Var(&beInputs.VAT, "vat", 0, "VAT rate, 0-1")
	f.Float64Var(&beInputs.IncomeTax, "income-tax", breakeven.MinIncomeTax, "income tax rate, 0.07-0.12")

	f.StringVar(&beBranch, "branch", "", "branch name for reports and the audit trail")
	f.StringVar(&beFile, "file", "", "YAML or JSON scenario file with many branches")
	f.StringVar(&beFormat, "format", formatTable, "output format: table, json, csv, pdf")
	f.StringVar(&beOut, "out", "", "write output to a file instead of stdout")

	breakevenCmd.MarkFlagsMutuallyExclusive("file", "agents")
	breakevenCmd.MarkFlagsMutuallyExclusive("file", "branch")
	rootCmd.AddCommand(breakevenCmd)
}
