package harness

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/weiihann/fkbench/store"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		v     store.Variant
		entry Entry
		want  string
	}{
		{store.Unindexed, Entry{10, 100}, "unindexed-10x100"},
		{store.Indexed, Entry{1000, 100000}, "indexed-1000x100000"},
	}

	for _, tt := range tests {
		if got := Label(tt.v, tt.entry); got != tt.want {
			t.Errorf("Label(%s, %s) = %q, want %q", tt.v, tt.entry, got, tt.want)
		}
	}
}

func TestResultsAddReplacesInPlace(t *testing.T) {
	r := NewResults()
	r.Add("a", AggregatedResult{PhaseCreate: {Min: 1, Avg: 1, Max: 1}})
	r.Add("b", AggregatedResult{})
	r.Add("a", AggregatedResult{PhaseCreate: {Min: 2, Avg: 2, Max: 2}})

	if got := r.Labels(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("labels = %v, want [a b]", got)
	}

	agg, _ := r.Get("a")
	if agg[PhaseCreate].Min != 2 {
		t.Errorf("a.create.min = %v, want 2", agg[PhaseCreate].Min)
	}
}

func TestResultsJSONKeepsOrder(t *testing.T) {
	r := NewResults()
	for _, label := range []string{"unindexed-10x100", "indexed-10x100", "unindexed-1x1"} {
		r.Add(label, AggregatedResult{
			PhaseDeleteCascade: {Min: 4, Avg: 5, Max: 6},
			PhaseCreate:        {Min: 1, Avg: 2, Max: 3},
		})
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	out := string(data)
	if !(strings.Index(out, `"unindexed-10x100"`) < strings.Index(out, `"indexed-10x100"`) &&
		strings.Index(out, `"indexed-10x100"`) < strings.Index(out, `"unindexed-1x1"`)) {
		t.Errorf("labels out of order: %s", out)
	}
	if strings.Index(out, `"create"`) > strings.Index(out, `"deleteCascade"`) {
		t.Errorf("phases out of order: %s", out)
	}
	if !strings.Contains(out, `"create":{"min":1,"avg":2,"max":3}`) {
		t.Errorf("unexpected stats encoding: %s", out)
	}

	var back Results
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !slices.Equal(back.Labels(), r.Labels()) {
		t.Errorf("labels = %v, want %v", back.Labels(), r.Labels())
	}

	agg, ok := back.Get("indexed-10x100")
	if !ok {
		t.Fatal("missing indexed-10x100 after round trip")
	}
	if agg[PhaseDeleteCascade] != (Stats{Min: 4, Avg: 5, Max: 6}) {
		t.Errorf("deleteCascade = %+v", agg[PhaseDeleteCascade])
	}
}

func TestResultsUnmarshalRejectsArray(t *testing.T) {
	var r Results
	if err := json.Unmarshal([]byte(`[]`), &r); err == nil {
		t.Error("expected error for array input")
	}
}

func TestPhaseErrorMessage(t *testing.T) {
	err := &PhaseError{
		Variant: store.Indexed,
		Entry:   Entry{10, 100},
		Phase:   PhaseDelete,
		Err:     errInjected,
	}

	want := "indexed 10x100: phase delete: injected"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
