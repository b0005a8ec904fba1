package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/weiihann/fkbench/batch"
	"github.com/weiihann/fkbench/store"
	"github.com/weiihann/fkbench/store/memstore"
	"github.com/weiihann/fkbench/workload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(st store.RelationalStore, batchSize int) *Runner {
	r := NewRunner(st, batch.New(batchSize), workload.NewSeededGenerator(42), discardLogger())
	r.Verify = true

	return r
}

func TestRunEndToEnd(t *testing.T) {
	for _, v := range store.Variants() {
		t.Run(v.String(), func(t *testing.T) {
			st := memstore.New()
			r := newTestRunner(st, 16)

			res, err := r.Run(context.Background(), Params{
				Variant: v,
				Entry:   Entry{Parents: 10, Children: 100},
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			for _, phase := range Phases() {
				if _, ok := res[phase]; !ok {
					t.Errorf("missing phase %s", phase)
				}
			}
			if len(res) != len(Phases()) {
				t.Errorf("phases = %d, want %d", len(res), len(Phases()))
			}

			parents, _ := st.CountParents(context.Background())
			children, _ := st.CountChildren(context.Background(), v)
			if parents != 0 || children != 0 {
				t.Errorf("after cascade: %d parents, %d children, want 0 and 0",
					parents, children)
			}
		})
	}
}

func TestRunCascadeStrategies(t *testing.T) {
	for _, strategy := range []CascadeStrategy{CascadeBulk, CascadePerParent} {
		t.Run(string(strategy), func(t *testing.T) {
			st := memstore.New()
			r := newTestRunner(st, 3)
			r.Cascade = strategy

			_, err := r.Run(context.Background(), Params{
				Variant: store.Indexed,
				Entry:   Entry{Parents: 7, Children: 40},
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			children, _ := st.CountChildren(context.Background(), store.Indexed)
			if children != 0 {
				t.Errorf("children = %d, want 0", children)
			}
		})
	}
}

func TestRunClearsLeftoverRows(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	ids := seedStore(t, st, store.Unindexed, 3, 9)
	if len(ids) != 3 {
		t.Fatalf("seeded %d parents, want 3", len(ids))
	}

	r := newTestRunner(st, 4)
	if _, err := r.Run(ctx, Params{Variant: store.Unindexed, Entry: Entry{Parents: 2, Children: 5}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunZeroChildren(t *testing.T) {
	r := newTestRunner(memstore.New(), 4)

	res, err := r.Run(context.Background(), Params{
		Variant: store.Unindexed,
		Entry:   Entry{Parents: 5, Children: 0},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res) != len(Phases()) {
		t.Errorf("phases = %d, want %d", len(res), len(Phases()))
	}
}

func TestRunRerunKeepsPhaseSet(t *testing.T) {
	r := newTestRunner(memstore.New(), 8)
	p := Params{Variant: store.Indexed, Entry: Entry{Parents: 4, Children: 30}}

	first, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	second, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("phase counts differ: %d vs %d", len(first), len(second))
	}
	for phase := range first {
		if _, ok := second[phase]; !ok {
			t.Errorf("phase %s missing from rerun", phase)
		}
	}
}

// failingStore rejects every rebind.
type failingStore struct {
	*memstore.Store
}

var errInjected = errors.New("injected")

func (failingStore) UpdateChildParent(context.Context, store.Variant, int64, int64) (int64, error) {
	return 0, errInjected
}

func TestRunFailsFast(t *testing.T) {
	r := newTestRunner(failingStore{memstore.New()}, 4)

	_, err := r.Run(context.Background(), Params{
		Variant: store.Unindexed,
		Entry:   Entry{Parents: 2, Children: 10},
	})
	if err == nil {
		t.Fatal("expected error from failing store")
	}

	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a PhaseError", err)
	}
	if pe.Phase != PhaseUpdate {
		t.Errorf("phase = %s, want %s", pe.Phase, PhaseUpdate)
	}
	if pe.Variant != store.Unindexed {
		t.Errorf("variant = %s, want unindexed", pe.Variant)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("error %v does not wrap the store error", err)
	}
}

// lossyStore silently drops every insert of children.
type lossyStore struct {
	*memstore.Store
}

func (lossyStore) CreateChildren(_ context.Context, _ store.Variant, children []store.NewChild) (int64, error) {
	return int64(len(children)), nil
}

func TestRunVerifyDetectsMissingRows(t *testing.T) {
	r := newTestRunner(lossyStore{memstore.New()}, 4)

	_, err := r.Run(context.Background(), Params{
		Variant: store.Indexed,
		Entry:   Entry{Parents: 2, Children: 10},
	})
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("error = %v, want ErrVerification", err)
	}

	var pe *PhaseError
	if errors.As(err, &pe) && pe.Phase != PhaseCreate {
		t.Errorf("phase = %s, want %s", pe.Phase, PhaseCreate)
	}
}

func TestParseCascade(t *testing.T) {
	tests := []struct {
		in      string
		want    CascadeStrategy
		wantErr bool
	}{
		{"bulk", CascadeBulk, false},
		{"per-parent", CascadePerParent, false},
		{"", "", true},
		{"parallel", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCascade(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCascade(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCascade(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func seedStore(t *testing.T, st store.RelationalStore, v store.Variant, parents, children int) []int64 {
	t.Helper()

	ctx := context.Background()
	gen := workload.NewSeededGenerator(7)

	if _, err := st.CreateParents(ctx, gen.Parents(parents)); err != nil {
		t.Fatalf("CreateParents failed: %v", err)
	}

	ids, err := st.ParentIDs(ctx)
	if err != nil {
		t.Fatalf("ParentIDs failed: %v", err)
	}

	pool, err := workload.NewParentPool(ids)
	if err != nil {
		t.Fatalf("NewParentPool failed: %v", err)
	}

	if _, err := st.CreateChildren(ctx, v, gen.Children(children, pool)); err != nil {
		t.Fatalf("CreateChildren failed: %v", err)
	}

	return ids
}
