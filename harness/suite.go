package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weiihann/fkbench/store"
)

// Suite runs the comparative loop: for every matrix entry, the
// unindexed variant and then the indexed variant.
type Suite struct {
	Runner TrialRunner
	Trials int
	Logger *slog.Logger
}

// NewSuite creates a Suite.
func NewSuite(runner TrialRunner, trials int, logger *slog.Logger) *Suite {
	return &Suite{Runner: runner, Trials: trials, Logger: logger}
}

// Run benchmarks every entry in order. The first failure aborts the run
// and no partial results are returned.
func (s *Suite) Run(ctx context.Context, matrix []Entry) (*Results, error) {
	results := NewResults()

	for _, entry := range matrix {
		for _, v := range store.Variants() {
			label := Label(v, entry)

			s.Logger.InfoContext(ctx, "starting run",
				slog.String("label", label),
				slog.Int("trials", s.Trials),
			)

			agg, err := Aggregate(ctx, s.Runner, Params{Variant: v, Entry: entry}, s.Trials)
			if err != nil {
				return nil, fmt.Errorf("run %s: %w", label, err)
			}

			results.Add(label, agg)

			s.Logger.InfoContext(ctx, "run complete",
				append([]any{slog.String("label", label)}, statsAttrs(agg)...)...,
			)
		}
	}

	return results, nil
}

func statsAttrs(agg AggregatedResult) []any {
	attrs := make([]any, 0, len(agg))
	for _, phase := range orderedPhases(agg) {
		st := agg[phase]
		attrs = append(attrs, slog.Group(string(phase),
			slog.Float64("min_ms", st.Min),
			slog.Float64("avg_ms", st.Avg),
			slog.Float64("max_ms", st.Max),
		))
	}

	return attrs
}
