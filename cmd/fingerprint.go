/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqltriage/sqltriage/internal/fingerprint"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint [sql]",
	Short: "Print the normalized fingerprint of a statement",
	Long: `Normalize a SQL statement and print its fingerprint and hash.

Structurally identical statements that differ only in literal values produce
the same fingerprint, so the hash groups recurring slow queries.`,
	Example: `  sqltriage fingerprint "SELECT * FROM users WHERE id = 42"

  # Read from stdin
  cat query.sql | sqltriage fingerprint`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sql string
		if len(args) > 0 {
			sql = args[0]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			sql = string(data)
		}
		if strings.TrimSpace(sql) == "" {
			return fmt.Errorf("no SQL provided")
		}

		fp, hash := fingerprint.Fingerprint(sql)

		quiet, _ := cmd.Flags().GetBool("quiet")
		if quiet {
			fmt.Println(hash)
			return nil
		}

		fmt.Printf("fingerprint: %s\n", fp)
		fmt.Printf("hash:        %s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
	fingerprintCmd.Flags().BoolP("quiet", "q", false, "Print only the hash")
}
