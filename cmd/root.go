package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/config"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

var started time.Time

var rootCmd = &cobra.Command{
	Use:     "brokerage-cli",
	Short:   "Branch break-even modelling and agent KPI scoring",
	Long:    "Computes the sales volume a brokerage branch needs to cover its costs, scores agents from daily activity logs, and ranks them on a monthly leaderboard.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		started = time.Now()

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		zap.L().Debug("command finished",
			zap.String("command", cmd.CommandPath()),
			zap.Duration("elapsed", time.Since(started)),
		)
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate("brokerage-cli {{.Version}}\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
