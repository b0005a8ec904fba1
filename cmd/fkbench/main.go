// Package main provides the CLI entry point for fkbench, a benchmark of
// relational CRUD latency with and without an index on the foreign key
// column.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/fkbench/batch"
	"github.com/weiihann/fkbench/config"
	"github.com/weiihann/fkbench/harness"
	"github.com/weiihann/fkbench/report"
	"github.com/weiihann/fkbench/store"
	"github.com/weiihann/fkbench/store/memstore"
	"github.com/weiihann/fkbench/store/sqlstore"
	"github.com/weiihann/fkbench/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "fkbench",
		Short: "Foreign key index benchmark",
		Long: `Fkbench measures create, read, update, delete and cascade-delete
latency for a parent table with two child tables that differ only in
whether the foreign key column carries a secondary index.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log every phase of every trial")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newReportCmd())

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath string
		matrix     string
		trials     int
		batchSize  int
		seed       int64
		dialect    string
		dsn        string
		poolSize   int
		cascade    string
		verify     bool
		outputDir  string
		outPath    string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark matrix against both child tables",
		Long: `Run every matrix entry against the unindexed child table and then
the indexed one, aggregate min/avg/max per phase over all trials, and
write the results file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("matrix") {
				if cfg.Matrix, err = config.ParseMatrix(matrix); err != nil {
					return err
				}
			}
			if flags.Changed("trials") {
				cfg.Trials = trials
			}
			if flags.Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("dialect") {
				cfg.Dialect = dialect
			}
			if flags.Changed("dsn") {
				cfg.DSN = dsn
			}
			if flags.Changed("pool-size") {
				cfg.PoolSize = poolSize
			}
			if flags.Changed("cascade") {
				cfg.Cascade = cascade
			}
			if flags.Changed("verify") {
				cfg.Verify = verify
			}
			if flags.Changed("output-dir") {
				cfg.OutputDir = outputDir
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return runBenchmark(cmd.Context(), logger, cfg, runOutput{
				path: outPath,
				json: outputJSON,
				w:    cmd.OutOrStdout(),
			})
		},
	}

	defaults := config.DefaultConfig()

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to a YAML or JSON config file")
	flags.StringVar(&matrix, "matrix", "",
		"Comma separated <parents>x<children> entries (e.g. 10x100,10x1000)")
	flags.IntVar(&trials, "trials", defaults.Trials,
		"Trials aggregated per variant and entry")
	flags.IntVar(&batchSize, "batch-size", defaults.BatchSize,
		"Maximum in-flight requests during update and delete")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.StringVar(&dialect, "dialect", defaults.Dialect,
		"Backend: sqlite, postgres, mysql, memory")
	flags.StringVar(&dsn, "dsn", "",
		"Connection string (default: $SQLITE_DSN, $POSTGRES_DSN or $MYSQL_DSN)")
	flags.IntVar(&poolSize, "pool-size", 0,
		"Maximum open connections (0 = dialect default)")
	flags.StringVar(&cascade, "cascade", defaults.Cascade,
		"Cascade delete strategy: bulk, per-parent")
	flags.BoolVar(&verify, "verify", false,
		"Check row counts after each phase (untimed)")
	flags.StringVar(&outputDir, "output-dir", defaults.OutputDir,
		"Directory for the results file")
	flags.StringVar(&outPath, "out", "",
		"Exact results file path (overrides --output-dir)")
	flags.BoolVar(&outputJSON, "json", false,
		"Print results as JSON instead of a table")

	return cmd
}

func newReportCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "report <results.json>",
		Short: "Render a saved results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := report.ReadFile(args[0])
			if err != nil {
				return err
			}

			return printResults(cmd.OutOrStdout(), results, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Print results as JSON instead of a table")

	return cmd
}

// loadConfig applies defaults, then the optional file, then FKBENCH_*
// environment variables. Flags are applied by the caller.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if path != "" {
		var err error

		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	return cfg, nil
}

type runOutput struct {
	path string
	json bool
	w    io.Writer
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	out runOutput,
) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Validate has already accepted both names.
	dialect, _ := store.ParseDialect(cfg.Dialect)
	cascade, _ := harness.ParseCascade(cfg.Cascade)

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("dialect", string(dialect)),
		slog.Any("matrix", cfg.Matrix),
		slog.Int("trials", cfg.Trials),
		slog.Int("batch_size", cfg.BatchSize),
		slog.String("cascade", string(cascade)),
		slog.Bool("verify", cfg.Verify),
		slog.Int64("seed", seed),
	)

	st, err := openStore(ctx, dialect, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Clear leftovers of an earlier, interrupted run.
	if err := store.Reset(ctx, st); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	runner := harness.NewRunner(
		st, batch.New(cfg.BatchSize), workload.NewSeededGenerator(seed), logger,
	)
	runner.Cascade = cascade
	runner.Verify = cfg.Verify

	start := time.Now()

	results, err := harness.NewSuite(runner, cfg.Trials, logger).Run(ctx, cfg.Matrix)
	if err != nil {
		return err
	}

	path := out.path
	if path == "" {
		path = report.DefaultPath(cfg.OutputDir, time.Now())
	}

	if err := report.WriteFile(path, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("results", path),
		slog.Int("labels", results.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)

	return printResults(out.w, results, out.json)
}

func openStore(ctx context.Context, d store.Dialect, cfg *config.Config) (store.RelationalStore, error) {
	if d == store.DialectMemory {
		return memstore.New(), nil
	}

	return sqlstore.Open(ctx, sqlstore.Options{
		Dialect:  d,
		DSN:      cfg.DSN,
		PoolSize: cfg.PoolSize,
	})
}
