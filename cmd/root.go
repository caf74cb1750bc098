/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
}

var rootCmd = &cobra.Command{
	Use:          "sqltriage",
	SilenceUsage: true,
	Short:        "Diagnose slow MySQL and PostgreSQL queries",
	Long: `sqltriage analyzes captured slow queries and explains why they are slow.

It fingerprints the statement, interprets the EXPLAIN plan, runs a deterministic
set of performance heuristics, and can optionally consult an AI model that probes
the database through a read-only sandbox.`,
	Example: `  # Analyze a captured slow-query record
  sqltriage analyze record.json

  # Analyze ad-hoc SQL with metrics
  sqltriage analyze --sql "SELECT * FROM orders" --duration 3200 --rows-examined 500000

  # Fingerprint a statement
  sqltriage fingerprint "SELECT * FROM users WHERE id = 42"

  # Setup connection profiles
  sqltriage init`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
