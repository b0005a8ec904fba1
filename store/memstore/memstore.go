// Package memstore is an in-process RelationalStore with the same
// semantics as the SQL backends: monotonically increasing identities,
// foreign key checks on write, and cascading parent deletes.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/weiihann/fkbench/store"
)

// Store holds foo, bar and baz in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	parents  map[int64]store.Parent
	children map[store.Variant]map[int64]store.Child
	nextID   map[string]int64
}

var _ store.RelationalStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{
		parents:  make(map[int64]store.Parent),
		children: make(map[store.Variant]map[int64]store.Child),
		nextID:   make(map[string]int64),
	}
	for _, v := range store.Variants() {
		s.children[v] = make(map[int64]store.Child)
	}

	return s
}

func (s *Store) allocID(table string) int64 {
	s.nextID[table]++

	return s.nextID[table]
}

// CreateParents inserts parents under increasing ids.
func (s *Store) CreateParents(ctx context.Context, parents []store.NewParent) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range parents {
		id := s.allocID("foo")
		s.parents[id] = store.Parent{ID: id, Name: p.Name}
	}

	return int64(len(parents)), nil
}

// ParentIDs returns every foo id in ascending order.
func (s *Store) ParentIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.parents))
	for id := range s.parents {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids, nil
}

// CreateChildren inserts children into the variant's table.
func (s *Store) CreateChildren(ctx context.Context, v store.Variant, children []store.NewChild) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// All-or-nothing, like a single multi-row insert.
	for i, c := range children {
		if _, ok := s.parents[c.ParentID]; !ok {
			return 0, fmt.Errorf("%s row %d references foo %d: %w",
				v.Table(), i, c.ParentID, store.ErrForeignKey)
		}
	}

	rows := s.children[v]
	for _, c := range children {
		id := s.allocID(v.Table())
		rows[id] = store.Child{ID: id, Label: c.Label, ParentID: c.ParentID}
	}

	return int64(len(children)), nil
}

// ChildIDs returns every child id of the variant in ascending order.
func (s *Store) ChildIDs(ctx context.Context, v store.Variant) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.children[v]
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids, nil
}

// ReadParentsWithChildren groups the variant under each parent,
// keeping parents without children.
func (s *Store) ReadParentsWithChildren(ctx context.Context, v store.Variant) ([]store.ParentWithChildren, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byParent := make(map[int64][]store.Child, len(s.parents))
	for _, c := range s.children[v] {
		byParent[c.ParentID] = append(byParent[c.ParentID], c)
	}

	out := make([]store.ParentWithChildren, 0, len(s.parents))
	for _, p := range s.parents {
		kids := byParent[p.ID]
		slices.SortFunc(kids, func(a, b store.Child) int {
			return cmp.Compare(a.ID, b.ID)
		})
		out = append(out, store.ParentWithChildren{Parent: p, Children: kids})
	}
	slices.SortFunc(out, func(a, b store.ParentWithChildren) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return out, nil
}

// UpdateChildParent points one child at another parent.
func (s *Store) UpdateChildParent(ctx context.Context, v store.Variant, childID, parentID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.children[v]
	c, ok := rows[childID]
	if !ok {
		return 0, fmt.Errorf("update %s %d: %w", v.Table(), childID, store.ErrNotFound)
	}
	if _, ok := s.parents[parentID]; !ok {
		return 0, fmt.Errorf("update %s %d to foo %d: %w",
			v.Table(), childID, parentID, store.ErrForeignKey)
	}

	c.ParentID = parentID
	rows[childID] = c

	return 1, nil
}

// DeleteChild removes one child by id.
func (s *Store) DeleteChild(ctx context.Context, v store.Variant, childID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.children[v]
	if _, ok := rows[childID]; !ok {
		return 0, fmt.Errorf("delete %s %d: %w", v.Table(), childID, store.ErrNotFound)
	}
	delete(rows, childID)

	return 1, nil
}

// DeleteChildren removes the children listed in ids.
func (s *Store) DeleteChildren(ctx context.Context, v store.Variant, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.children[v]
	var n int64
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			n++
		}
	}

	return n, nil
}

// DeleteAllChildren empties the variant's table.
func (s *Store) DeleteAllChildren(ctx context.Context, v store.Variant) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.children[v]))
	s.children[v] = make(map[int64]store.Child)

	return n, nil
}

// DeleteParent removes one parent and its children.
func (s *Store) DeleteParent(ctx context.Context, id int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parents[id]; !ok {
		return 0, fmt.Errorf("delete foo %d: %w", id, store.ErrNotFound)
	}
	delete(s.parents, id)
	s.cascade(func(parentID int64) bool { return parentID == id })

	return 1, nil
}

// DeleteAllParents removes every parent and, by cascade, every child.
func (s *Store) DeleteAllParents(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.parents))
	s.parents = make(map[int64]store.Parent)
	s.cascade(func(int64) bool { return true })

	return n, nil
}

// cascade removes children whose parent matches; caller holds mu.
func (s *Store) cascade(match func(parentID int64) bool) {
	for _, rows := range s.children {
		for id, c := range rows {
			if match(c.ParentID) {
				delete(rows, id)
			}
		}
	}
}

// CountParents returns the number of rows in foo.
func (s *Store) CountParents(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.parents)), nil
}

// CountChildren returns the number of rows in the variant's table.
func (s *Store) CountChildren(ctx context.Context, v store.Variant) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.children[v])), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
