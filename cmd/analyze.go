/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sqltriage/sqltriage/internal/advisor"
	"github.com/sqltriage/sqltriage/internal/ai"
	"github.com/sqltriage/sqltriage/internal/metadata"
	"github.com/sqltriage/sqltriage/internal/output"
	"github.com/sqltriage/sqltriage/internal/plan"
	"github.com/sqltriage/sqltriage/internal/profile"
	"github.com/sqltriage/sqltriage/internal/record"
	"github.com/sqltriage/sqltriage/internal/sandbox"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a captured slow query",
	Long: `Analyze a slow-query record and report why it is slow.

Input is a JSON record file (SQL, kind, metrics, optional plan_json).
Use "-" to read from stdin, or pass --sql with metric flags instead.

With a database connection (--db or a profile) the EXPLAIN plan is captured
live when the record does not already carry one. --ai adds a bounded AI
conversation that may probe the database through a read-only sandbox.`,
	Example: `  # Analyze a record file
  sqltriage analyze record.json

  # Read the record from stdin
  cat record.json | sqltriage analyze -

  # Ad-hoc SQL with metrics
  sqltriage analyze --sql "SELECT * FROM orders" --kind mysql --duration 3200

  # AI-assisted analysis with a saved profile
  sqltriage analyze record.json --profile prod --ai`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		profileName, _ := cmd.Flags().GetString("profile")
		format, _ := cmd.Flags().GetString("format")
		kindFlag, _ := cmd.Flags().GetString("kind")
		useAI, _ := cmd.Flags().GetBool("ai")

		if format != "text" && format != "json" {
			return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
		}

		// Best effort; credentials may come from the real environment.
		_ = godotenv.Load()

		prof, err := profile.ResolveProfile(db, kindFlag, profileName)
		if err != nil {
			return err
		}

		rec, err := loadRecord(cmd, args)
		if err != nil {
			return err
		}
		if rec.Kind == "" {
			rec.Kind = record.DatabaseKind(prof.Kind)
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("unknown database kind %q: must be \"mysql\" or \"postgres\"", rec.Kind)
		}

		ctx := cmd.Context()

		if len(rec.PlanJSON) == 0 && prof.ConnStr != "" {
			// Live capture failure degrades to metric-only analysis.
			if raw, err := plan.Capture(ctx, prof.ConnStr, rec.Kind, rec.SQL); err == nil {
				rec.PlanJSON = raw
			}
		}

		opts := advisor.Options{}
		if useAI {
			provider, err := buildProvider(prof)
			if err != nil {
				return err
			}
			opts.EnableAI = true
			opts.Provider = provider
			opts.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
			timeoutSec, _ := cmd.Flags().GetInt("timeout")
			opts.Timeout = time.Duration(timeoutSec) * time.Second

			if prof.ConnStr != "" {
				exec, err := sandbox.New(string(rec.Kind), prof.ConnStr)
				if err != nil {
					return err
				}
				opts.Executor = exec
				if meta, err := metadata.New(rec.Kind, prof.ConnStr); err == nil {
					opts.Metadata = meta
				}
			}
		}

		result, err := advisor.Analyze(ctx, rec, opts)
		if err != nil {
			return err
		}

		switch format {
		case "json":
			return output.RenderJSON(os.Stdout, result)
		case "text":
			return output.RenderAnalysisText(os.Stdout, result)
		}

		return nil
	},
}

// loadRecord builds the record from a file, stdin, or the --sql flag set.
func loadRecord(cmd *cobra.Command, args []string) (*record.SlowQueryRecord, error) {
	sqlFlag, _ := cmd.Flags().GetString("sql")

	if sqlFlag != "" {
		duration, _ := cmd.Flags().GetFloat64("duration")
		lockTime, _ := cmd.Flags().GetFloat64("lock-time")
		examined, _ := cmd.Flags().GetInt64("rows-examined")
		returned, _ := cmd.Flags().GetInt64("rows-returned")
		kind, _ := cmd.Flags().GetString("kind")
		return &record.SlowQueryRecord{
			SQL:  sqlFlag,
			Kind: record.DatabaseKind(kind),
			Metrics: record.Metrics{
				DurationMS:   duration,
				LockTimeMS:   lockTime,
				RowsExamined: examined,
				RowsReturned: returned,
			},
			CapturedAt: time.Now(),
			Status:     record.StatusNew,
		}, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("provide a record file, \"-\" for stdin, or --sql")
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading record file: %w", err)
		}
	}

	var rec record.SlowQueryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing record JSON: %w", err)
	}
	return &rec, nil
}

func buildProvider(prof profile.Profile) (ai.Provider, error) {
	cfg := ai.Config{
		Provider: prof.AI.Provider,
		Model:    prof.AI.Model,
	}
	if prof.AI.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(prof.AI.APIKeyEnv)
	}
	provider, err := ai.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return ai.WithCache(provider, prof.AI.CachePath), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("db", "d", "", "Database connection string (read-only credential)")
	analyzeCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	analyzeCmd.Flags().StringP("kind", "k", "mysql", "Database kind: mysql, postgres")
	analyzeCmd.Flags().String("sql", "", "Analyze this SQL text instead of a record file")
	analyzeCmd.Flags().Float64("duration", 0, "Query duration in milliseconds")
	analyzeCmd.Flags().Float64("lock-time", 0, "Lock wait time in milliseconds")
	analyzeCmd.Flags().Int64("rows-examined", 0, "Rows examined by the query")
	analyzeCmd.Flags().Int64("rows-returned", 0, "Rows returned by the query")
	analyzeCmd.Flags().Bool("ai", false, "Enable AI-assisted analysis")
	analyzeCmd.Flags().Int("max-iterations", ai.DefaultMaxIterations, "AI conversation round-trip budget")
	analyzeCmd.Flags().Int("timeout", 120, "AI analysis timeout in seconds")
	analyzeCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
