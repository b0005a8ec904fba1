// Package storetest holds the behavioral contract every
// store.RelationalStore implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiihann/fkbench/store"
)

// Factory returns an empty store; cleanup is registered on t.
type Factory func(t *testing.T) store.RelationalStore

// Run exercises the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.RelationalStore, v store.Variant)
	}{
		{"CreateAndListParents", testCreateAndListParents},
		{"ChildrenReferenceParents", testChildrenReferenceParents},
		{"ReadJoin", testReadJoin},
		{"UpdateRebindsParent", testUpdateRebindsParent},
		{"TargetedDeletes", testTargetedDeletes},
		{"CascadeAll", testCascadeAll},
		{"CascadeOne", testCascadeOne},
		{"Reset", testReset},
	}

	for _, tt := range tests {
		for _, v := range store.Variants() {
			t.Run(tt.name+"/"+v.String(), func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()
				require.NoError(t, store.Reset(ctx, s))
				tt.fn(t, s, v)
			})
		}
	}
}

func seed(t *testing.T, s store.RelationalStore, variant store.Variant, parents, childrenPerParent int) ([]int64, []int64) {
	t.Helper()
	ctx := context.Background()

	ps := make([]store.NewParent, parents)
	for i := range ps {
		ps[i] = store.NewParent{Name: "parent"}
	}
	n, err := s.CreateParents(ctx, ps)
	require.NoError(t, err)
	require.EqualValues(t, parents, n)

	parentIDs, err := s.ParentIDs(ctx)
	require.NoError(t, err)
	require.Len(t, parentIDs, parents)

	var cs []store.NewChild
	for _, pid := range parentIDs {
		for j := 0; j < childrenPerParent; j++ {
			cs = append(cs, store.NewChild{Label: "CA", ParentID: pid})
		}
	}
	n, err = s.CreateChildren(ctx, variant, cs)
	require.NoError(t, err)
	require.EqualValues(t, len(cs), n)

	childIDs, err := s.ChildIDs(ctx, variant)
	require.NoError(t, err)
	require.Len(t, childIDs, len(cs))

	return parentIDs, childIDs
}

func testCreateAndListParents(t *testing.T, s store.RelationalStore, variant store.Variant) {
	parentIDs, _ := seed(t, s, variant, 10, 0)

	for i := 1; i < len(parentIDs); i++ {
		require.Less(t, parentIDs[i-1], parentIDs[i], "ids must be ascending")
	}

	n, err := s.CountParents(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 10, n)
}

func testChildrenReferenceParents(t *testing.T, s store.RelationalStore, variant store.Variant) {
	parentIDs, _ := seed(t, s, variant, 3, 2)
	ctx := context.Background()

	n, err := s.CountChildren(ctx, variant)
	require.NoError(t, err)
	require.EqualValues(t, 6, n)

	// The other variant's table is untouched.
	other := store.Indexed
	if variant == store.Indexed {
		other = store.Unindexed
	}
	n, err = s.CountChildren(ctx, other)
	require.NoError(t, err)
	require.Zero(t, n)

	for _, pid := range parentIDs {
		require.Positive(t, pid)
	}
}

func testReadJoin(t *testing.T, s store.RelationalStore, variant store.Variant) {
	seed(t, s, variant, 4, 3)
	ctx := context.Background()

	// One parent without children still appears in the join.
	_, err := s.CreateParents(ctx, []store.NewParent{{Name: "lonely"}})
	require.NoError(t, err)

	joined, err := s.ReadParentsWithChildren(ctx, variant)
	require.NoError(t, err)
	require.Len(t, joined, 5)

	total := 0
	for i, p := range joined {
		if i > 0 {
			require.Less(t, joined[i-1].ID, p.ID)
		}
		for _, c := range p.Children {
			require.Equal(t, p.ID, c.ParentID)
		}
		total += len(p.Children)
	}
	require.Equal(t, 12, total)
	require.Empty(t, joined[4].Children)
	require.Equal(t, "lonely", joined[4].Name)
}

func testUpdateRebindsParent(t *testing.T, s store.RelationalStore, variant store.Variant) {
	parentIDs, childIDs := seed(t, s, variant, 2, 1)
	ctx := context.Background()

	target := parentIDs[1]
	n, err := s.UpdateChildParent(ctx, variant, childIDs[0], target)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// Rebinding to the current parent still counts as one row.
	n, err = s.UpdateChildParent(ctx, variant, childIDs[0], target)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	joined, err := s.ReadParentsWithChildren(ctx, variant)
	require.NoError(t, err)
	require.Empty(t, joined[0].Children)
	require.Len(t, joined[1].Children, 2)

	_, err = s.UpdateChildParent(ctx, variant, childIDs[len(childIDs)-1]+1000, target)
	require.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func testTargetedDeletes(t *testing.T, s store.RelationalStore, variant store.Variant) {
	_, childIDs := seed(t, s, variant, 2, 5)
	ctx := context.Background()

	n, err := s.DeleteChild(ctx, variant, childIDs[0])
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.DeleteChild(ctx, variant, childIDs[0])
	require.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	n, err = s.DeleteChildren(ctx, variant, childIDs[1:4])
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	left, err := s.CountChildren(ctx, variant)
	require.NoError(t, err)
	require.EqualValues(t, 6, left)
}

func testCascadeAll(t *testing.T, s store.RelationalStore, variant store.Variant) {
	seed(t, s, variant, 5, 4)
	ctx := context.Background()

	n, err := s.DeleteAllParents(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	parents, err := s.CountParents(ctx)
	require.NoError(t, err)
	require.Zero(t, parents)

	children, err := s.CountChildren(ctx, variant)
	require.NoError(t, err)
	require.Zero(t, children)
}

func testCascadeOne(t *testing.T, s store.RelationalStore, variant store.Variant) {
	parentIDs, _ := seed(t, s, variant, 3, 2)
	ctx := context.Background()

	n, err := s.DeleteParent(ctx, parentIDs[0])
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	children, err := s.CountChildren(ctx, variant)
	require.NoError(t, err)
	require.EqualValues(t, 4, children)

	_, err = s.DeleteParent(ctx, parentIDs[0])
	require.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func testReset(t *testing.T, s store.RelationalStore, variant store.Variant) {
	seed(t, s, variant, 2, 2)
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx, s))

	parents, err := s.CountParents(ctx)
	require.NoError(t, err)
	require.Zero(t, parents)

	for _, each := range store.Variants() {
		n, err := s.CountChildren(ctx, each)
		require.NoError(t, err)
		require.Zero(t, n)
	}
}
