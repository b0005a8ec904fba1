// Package report formats benchmark results into comparison tables and
// persists them as JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/fkbench/harness"
	"github.com/weiihann/fkbench/store"
)

var errNoResults = errors.New("no results to report")

// Generate writes one markdown table per matrix entry comparing the
// unindexed and indexed variants phase by phase.
func Generate(w io.Writer, results *harness.Results) error {
	if results == nil || results.Len() == 0 {
		return errNoResults
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Times are per-phase min / avg / max over all trials. "+
		"Ratio is unindexed avg over indexed avg.")

	for _, g := range groupByEntry(results) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", g.entry)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Phase | Unindexed (min / avg / max) "+
			"| Indexed (min / avg / max) | Ratio |")
		fmt.Fprintln(w, "|-------|-----------------------------"+
			"|---------------------------|-------|")

		for _, phase := range harness.Phases() {
			un, hasUn := g.variants[store.Unindexed.String()][phase]
			ix, hasIx := g.variants[store.Indexed.String()][phase]
			if !hasUn && !hasIx {
				continue
			}

			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				phase,
				formatStats(un, hasUn),
				formatStats(ix, hasIx),
				formatRatio(un, hasUn, ix, hasIx),
			)
		}
	}

	return nil
}

// GenerateJSON writes results as indented JSON to w, keeping label and
// phase order.
func GenerateJSON(w io.Writer, results *harness.Results) error {
	if results == nil {
		results = harness.NewResults()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// DefaultPath returns a unique results file name under dir.
func DefaultPath(dir string, now time.Time) string {
	name := fmt.Sprintf("results-%s-%s.json",
		now.UTC().Format("20060102T150405Z"), uuid.New().String()[:8])

	return filepath.Join(dir, name)
}

// WriteFile writes results to path as JSON. The file is synced and
// renamed into place, so a reader never observes a partial report.
func WriteFile(path string, results *harness.Results) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := GenerateJSON(tmp, results); err != nil {
		tmp.Close()

		return fmt.Errorf("encode results: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return fmt.Errorf("sync results: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename results: %w", err)
	}

	return nil
}

// ReadFile loads results written by WriteFile.
func ReadFile(path string) (*harness.Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	results := harness.NewResults()
	if err := json.Unmarshal(data, results); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", path, err)
	}

	return results, nil
}

type entryGroup struct {
	entry    string
	variants map[string]harness.AggregatedResult
}

// groupByEntry splits "<variant>-<entry>" labels, keeping the order in
// which entries first appear.
func groupByEntry(results *harness.Results) []*entryGroup {
	var (
		groups []*entryGroup
		byName = make(map[string]*entryGroup)
	)

	for _, lr := range results.Entries() {
		variant, entry, ok := strings.Cut(lr.Label, "-")
		if !ok {
			variant, entry = lr.Label, lr.Label
		}

		g, seen := byName[entry]
		if !seen {
			g = &entryGroup{entry: entry, variants: make(map[string]harness.AggregatedResult)}
			byName[entry] = g
			groups = append(groups, g)
		}

		g.variants[variant] = lr.Result
	}

	return groups
}

func formatStats(s harness.Stats, ok bool) string {
	if !ok {
		return "-"
	}

	return fmt.Sprintf("%s / %s / %s", formatMs(s.Min), formatMs(s.Avg), formatMs(s.Max))
}

func formatRatio(un harness.Stats, hasUn bool, ix harness.Stats, hasIx bool) string {
	if !hasUn || !hasIx || ix.Avg <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", un.Avg/ix.Avg)
}

func formatMs(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.2fms", ms)
	}

	return fmt.Sprintf("%.2fs", ms/1000)
}
