// Package harness runs the foreign key benchmark: single trials against
// one child variant, repeated-trial aggregation, and the comparative
// loop over a matrix of dataset sizes.
package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/weiihann/fkbench/store"
)

// Phase names one timed stage of a trial.
type Phase string

const (
	PhaseCreate        Phase = "create"
	PhaseRead          Phase = "read"
	PhaseUpdate        Phase = "update"
	PhaseDelete        Phase = "delete"
	PhaseDeleteCascade Phase = "deleteCascade"

	// Untimed stages, used only to locate failures.
	PhaseSetup         Phase = "setup"
	PhaseCreateParents Phase = "createParents"
)

// Phases returns the reported phases in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseCreate, PhaseRead, PhaseUpdate, PhaseDelete, PhaseDeleteCascade,
	}
}

// Entry is one (parentCount, childCount) configuration.
type Entry struct {
	Parents  int `json:"parents" yaml:"parents"`
	Children int `json:"children" yaml:"children"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%dx%d", e.Parents, e.Children)
}

// Label keys a result by variant and entry, e.g. "indexed-10x1000".
func Label(v store.Variant, e Entry) string {
	return v.String() + "-" + e.String()
}

// TrialResult maps each phase to its elapsed time.
type TrialResult map[Phase]time.Duration

// Stats summarizes the samples of one phase, in milliseconds.
type Stats struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// AggregatedResult maps each phase to its statistics over all trials.
type AggregatedResult map[Phase]Stats

// MarshalJSON writes phases in execution order.
func (a AggregatedResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, phase := range orderedPhases(a) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, string(phase), a[phase]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// orderedPhases returns the reported phases present in a, followed by
// any other keys in lexical order.
func orderedPhases(a AggregatedResult) []Phase {
	out := make([]Phase, 0, len(a))
	for _, p := range Phases() {
		if _, ok := a[p]; ok {
			out = append(out, p)
		}
	}

	var extra []Phase
	for p := range a {
		if !slices.Contains(out, p) {
			extra = append(extra, p)
		}
	}
	slices.Sort(extra)

	return append(out, extra...)
}

// LabeledResult pairs a run label with its aggregate.
type LabeledResult struct {
	Label  string
	Result AggregatedResult
}

// Results is an insertion-ordered mapping from run label to aggregate.
// It marshals as a single JSON object whose keys keep matrix order.
type Results struct {
	entries []LabeledResult
	index   map[string]int
}

// NewResults returns an empty Results.
func NewResults() *Results {
	return &Results{index: make(map[string]int)}
}

// Add appends a result, or replaces it in place if label exists.
func (r *Results) Add(label string, agg AggregatedResult) {
	if r.index == nil {
		r.index = make(map[string]int)
	}

	if i, ok := r.index[label]; ok {
		r.entries[i].Result = agg

		return
	}

	r.index[label] = len(r.entries)
	r.entries = append(r.entries, LabeledResult{Label: label, Result: agg})
}

// Get returns the aggregate stored under label.
func (r *Results) Get(label string) (AggregatedResult, bool) {
	i, ok := r.index[label]
	if !ok {
		return nil, false
	}

	return r.entries[i].Result, true
}

// Len returns the number of labels.
func (r *Results) Len() int { return len(r.entries) }

// Labels returns labels in insertion order.
func (r *Results) Labels() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Label
	}

	return out
}

// Entries returns a copy of the labeled results in insertion order.
func (r *Results) Entries() []LabeledResult {
	return slices.Clone(r.entries)
}

func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, e.Label, e.Result); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object written by MarshalJSON, keeping key order.
func (r *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("read results: expected object, got %v", tok)
	}

	*r = *NewResults()

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read label: %w", err)
		}

		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("read label: expected string, got %v", tok)
		}

		var agg AggregatedResult
		if err := dec.Decode(&agg); err != nil {
			return fmt.Errorf("decode %s: %w", label, err)
		}

		r.Add(label, agg)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read results end: %w", err)
	}

	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("encode key %q: %w", key, err)
	}

	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)

	return nil
}
