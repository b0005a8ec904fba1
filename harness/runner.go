package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiihann/fkbench/batch"
	"github.com/weiihann/fkbench/store"
	"github.com/weiihann/fkbench/workload"
)

// CascadeStrategy selects how the deleteCascade phase removes parents.
type CascadeStrategy string

const (
	// CascadeBulk deletes every parent with one statement.
	CascadeBulk CascadeStrategy = "bulk"
	// CascadePerParent deletes parents one by one through the executor.
	CascadePerParent CascadeStrategy = "per-parent"
)

// ParseCascade validates a strategy name.
func ParseCascade(s string) (CascadeStrategy, error) {
	switch c := CascadeStrategy(s); c {
	case CascadeBulk, CascadePerParent:
		return c, nil
	default:
		return "", fmt.Errorf("unknown cascade strategy %q (want bulk or per-parent)", s)
	}
}

// Params selects the variant and dataset size of one trial.
type Params struct {
	Variant store.Variant
	Entry   Entry
}

// TrialRunner executes one trial.
type TrialRunner interface {
	Run(ctx context.Context, p Params) (TrialResult, error)
}

// Runner executes the create, read, update, delete and deleteCascade
// lifecycle against one child variant.
type Runner struct {
	Store     store.RelationalStore
	Executor  *batch.Executor
	Generator *workload.Generator
	// Cascade applies to every variant so the comparison stays fair.
	Cascade CascadeStrategy
	// Verify checks row counts after each phase, outside the timed
	// intervals.
	Verify bool
	Logger *slog.Logger
}

var _ TrialRunner = (*Runner)(nil)

// NewRunner creates a Runner with the bulk cascade strategy.
func NewRunner(
	st store.RelationalStore,
	exec *batch.Executor,
	gen *workload.Generator,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Store:     st,
		Executor:  exec,
		Generator: gen,
		Cascade:   CascadeBulk,
		Logger:    logger,
	}
}

// Run executes one trial and returns the elapsed time of each phase.
func (r *Runner) Run(ctx context.Context, p Params) (TrialResult, error) {
	t := &trial{
		Runner: r,
		v:      p.Variant,
		entry:  p.Entry,
		logger: r.Logger.With(
			slog.String("variant", p.Variant.String()),
			slog.String("entry", p.Entry.String()),
		),
		times: make(TrialResult, len(Phases())),
	}

	steps := []struct {
		phase Phase
		fn    func(context.Context) error
	}{
		{PhaseSetup, t.setup},
		{PhaseCreateParents, t.createParents},
		{PhaseCreate, t.create},
		{PhaseRead, t.read},
		{PhaseUpdate, t.update},
		{PhaseDelete, t.delete},
		{PhaseDeleteCascade, t.deleteCascade},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return nil, &PhaseError{
				Variant: p.Variant,
				Entry:   p.Entry,
				Phase:   step.phase,
				Err:     err,
			}
		}
	}

	return t.times, nil
}

// trial carries the state one Run threads through its phases.
type trial struct {
	*Runner
	v      store.Variant
	entry  Entry
	logger *slog.Logger
	times  TrialResult

	pool     *workload.ParentPool
	childIDs []int64
}

func (t *trial) setup(ctx context.Context) error {
	if _, err := t.Store.DeleteAllParents(ctx); err != nil {
		return fmt.Errorf("delete parents: %w", err)
	}
	if _, err := t.Store.DeleteAllChildren(ctx, t.v); err != nil {
		return fmt.Errorf("delete %s: %w", t.v.Table(), err)
	}

	return t.check(ctx, 0, 0)
}

func (t *trial) createParents(ctx context.Context) error {
	parents := t.Generator.Parents(t.entry.Parents)

	start := time.Now()
	if _, err := t.Store.CreateParents(ctx, parents); err != nil {
		return fmt.Errorf("insert parents: %w", err)
	}
	elapsed := time.Since(start)

	ids, err := t.Store.ParentIDs(ctx)
	if err != nil {
		return fmt.Errorf("fetch parent ids: %w", err)
	}

	t.pool, err = workload.NewParentPool(ids)
	if err != nil {
		return err
	}

	t.logger.DebugContext(ctx, "created parents",
		slog.Int("count", len(ids)),
		slog.Bool("dense_ids", t.pool.Dense()),
		slog.Duration("elapsed", elapsed),
	)

	return nil
}

func (t *trial) create(ctx context.Context) error {
	children := t.Generator.Children(t.entry.Children, t.pool)

	start := time.Now()
	if _, err := t.Store.CreateChildren(ctx, t.v, children); err != nil {
		return fmt.Errorf("insert %s: %w", t.v.Table(), err)
	}
	t.times[PhaseCreate] = time.Since(start)

	ids, err := t.Store.ChildIDs(ctx, t.v)
	if err != nil {
		return fmt.Errorf("fetch %s ids: %w", t.v.Table(), err)
	}
	t.childIDs = ids

	t.logger.DebugContext(ctx, "created children",
		slog.Int("count", len(ids)),
		slog.Duration("elapsed", t.times[PhaseCreate]),
	)

	return t.check(ctx, t.entry.Parents, t.entry.Children)
}

func (t *trial) read(ctx context.Context) error {
	start := time.Now()
	joined, err := t.Store.ReadParentsWithChildren(ctx, t.v)
	if err != nil {
		return fmt.Errorf("read parents with %s: %w", t.v.Table(), err)
	}
	t.times[PhaseRead] = time.Since(start)

	children := 0
	for _, p := range joined {
		children += len(p.Children)
	}

	t.logger.DebugContext(ctx, "read parents with children",
		slog.Int("parents", len(joined)),
		slog.Int("children", children),
		slog.Duration("elapsed", t.times[PhaseRead]),
	)

	if t.Verify && (len(joined) != t.entry.Parents || children != t.entry.Children) {
		return fmt.Errorf("%w: read %d parents with %d children, want %d with %d",
			ErrVerification, len(joined), children, t.entry.Parents, t.entry.Children)
	}

	return nil
}

func (t *trial) update(ctx context.Context) error {
	reqs := make([]batch.Request, len(t.childIDs))
	for i, id := range t.childIDs {
		id := id
		parentID := t.Generator.Reassign(t.pool)
		reqs[i] = func(ctx context.Context) (int64, error) {
			return t.Store.UpdateChildParent(ctx, t.v, id, parentID)
		}
	}

	out, err := t.Executor.Run(ctx, reqs)
	if err != nil {
		return fmt.Errorf("rebind %s: %w", t.v.Table(), err)
	}
	t.times[PhaseUpdate] = out.Duration

	t.logger.DebugContext(ctx, "updated relations",
		slog.Int64("count", out.Count),
		slog.Int("batches", out.Batches),
		slog.Duration("elapsed", out.Duration),
	)

	if !t.Verify {
		return nil
	}

	// Every child must still join to an existing parent.
	joined, err := t.Store.ReadParentsWithChildren(ctx, t.v)
	if err != nil {
		return fmt.Errorf("verify rebind: %w", err)
	}

	bound := 0
	for _, p := range joined {
		if !t.pool.Contains(p.ID) {
			return fmt.Errorf("%w: unknown parent %d", ErrVerification, p.ID)
		}
		bound += len(p.Children)
	}
	if bound != len(t.childIDs) {
		return fmt.Errorf("%w: %d of %d children bound to a parent",
			ErrVerification, bound, len(t.childIDs))
	}

	return nil
}

func (t *trial) delete(ctx context.Context) error {
	victims := t.Generator.Sample(t.childIDs, len(t.childIDs)/2)

	reqs := make([]batch.Request, len(victims))
	for i, id := range victims {
		id := id
		reqs[i] = func(ctx context.Context) (int64, error) {
			return t.Store.DeleteChild(ctx, t.v, id)
		}
	}

	out, err := t.Executor.Run(ctx, reqs)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.v.Table(), err)
	}
	t.times[PhaseDelete] = out.Duration

	t.logger.DebugContext(ctx, "deleted children",
		slog.Int64("count", out.Count),
		slog.Duration("elapsed", out.Duration),
	)

	return t.check(ctx, t.entry.Parents, len(t.childIDs)-len(victims))
}

func (t *trial) deleteCascade(ctx context.Context) error {
	var (
		count   int64
		elapsed time.Duration
	)

	switch t.Cascade {
	case CascadePerParent:
		ids, err := t.Store.ParentIDs(ctx)
		if err != nil {
			return fmt.Errorf("fetch parent ids: %w", err)
		}

		reqs := make([]batch.Request, len(ids))
		for i, id := range ids {
			id := id
			reqs[i] = func(ctx context.Context) (int64, error) {
				return t.Store.DeleteParent(ctx, id)
			}
		}

		out, err := t.Executor.Run(ctx, reqs)
		if err != nil {
			return fmt.Errorf("delete parents: %w", err)
		}
		count, elapsed = out.Count, out.Duration

	default:
		start := time.Now()
		n, err := t.Store.DeleteAllParents(ctx)
		if err != nil {
			return fmt.Errorf("delete parents: %w", err)
		}
		count, elapsed = n, time.Since(start)
	}

	t.times[PhaseDeleteCascade] = elapsed

	t.logger.DebugContext(ctx, "deleted parents cascading into children",
		slog.Int64("count", count),
		slog.String("strategy", string(t.Cascade)),
		slog.Duration("elapsed", elapsed),
	)

	return t.check(ctx, 0, 0)
}

// check compares stored row counts with the expected state when
// verification is enabled.
func (t *trial) check(ctx context.Context, parents, children int) error {
	if !t.Verify {
		return nil
	}

	gotParents, err := t.Store.CountParents(ctx)
	if err != nil {
		return fmt.Errorf("count parents: %w", err)
	}

	gotChildren, err := t.Store.CountChildren(ctx, t.v)
	if err != nil {
		return fmt.Errorf("count %s: %w", t.v.Table(), err)
	}

	if gotParents != int64(parents) || gotChildren != int64(children) {
		return fmt.Errorf("%w: have %d parents and %d %s, want %d and %d",
			ErrVerification, gotParents, gotChildren, t.v.Table(), parents, children)
	}

	return nil
}
