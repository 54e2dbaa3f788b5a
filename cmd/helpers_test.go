//go:build !integration

package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/config"
	"github.com/sells-group/brokerage-cli/internal/store"
)

// testConfig is a config with every section set the way Load would default
// it, writing to a SQLite file at dsn.
func testConfig(dsn string) *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn},
		Server: config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}, MaxBodyBytes: 1 << 20},
		Log:    config.LogConfig{Level: "info", Format: "json"},
		Batch:  config.BatchConfig{MaxConcurrency: 4},
		Audit:  config.AuditConfig{Enabled: true, RetryAttempts: 1},
	}
}

// newTestStore points cfg at a fresh migrated SQLite store.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	cfg = testConfig(filepath.Join(t.TempDir(), "test.db"))
	st, err := openStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

// runCLI executes the root command with args and returns stdout. Flags are
// reset first since commands share package-level flag variables.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag in the tree to its default so the next
// run starts clean.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// exampleInputs has a cost per seat of 10,700, a total operating cost of
// 63,500 and net revenue of 14,200 per million sold.
func exampleInputs() breakeven.Inputs {
	return breakeven.Inputs{
		Agents:               5,
		TeamLeaders:          1,
		Rent:                 5000,
		Salary:               3000,
		TeamLeaderShare:      1000,
		Others:               500,
		Marketing:            1000,
		SIM:                  200,
		FranchiseOwnerSalary: 10000,
		GrossRate:            0.03,
		AgentCommPer1M:       5000,
		TLCommPer1M:          3000,
		Withholding:          0.05,
		VAT:                  0.14,
		IncomeTax:            0.07,
	}
}
