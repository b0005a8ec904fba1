// Package store defines the relational store the benchmark drives: a
// parent table (foo) and two schema-identical child tables that differ
// only in whether the foreign key column carries a secondary index.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a targeted update or delete matches
	// no row.
	ErrNotFound = errors.New("record not found")

	// ErrForeignKey is returned when a child references a parent that
	// does not exist.
	ErrForeignKey = errors.New("foreign key violation")
)

// Variant selects the child table under test.
type Variant int

const (
	// Unindexed is the bar table: plain foreign key column.
	Unindexed Variant = iota
	// Indexed is the baz table: foreign key column with a secondary index.
	Indexed
)

// Variants returns both child variants in benchmark order.
func Variants() []Variant {
	return []Variant{Unindexed, Indexed}
}

// Table returns the child table name for the variant.
func (v Variant) Table() string {
	switch v {
	case Unindexed:
		return "bar"
	case Indexed:
		return "baz"
	default:
		panic(fmt.Sprintf("store: unknown variant %d", int(v)))
	}
}

// String returns the label used in result keys.
func (v Variant) String() string {
	switch v {
	case Unindexed:
		return "unindexed"
	case Indexed:
		return "indexed"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// NewParent is the insert shape of a foo row.
type NewParent struct {
	Name string
}

// Parent is a stored foo row.
type Parent struct {
	ID   int64
	Name string
}

// NewChild is the insert shape of a bar or baz row.
type NewChild struct {
	Label    string
	ParentID int64
}

// Child is a stored bar or baz row.
type Child struct {
	ID       int64
	Label    string
	ParentID int64
}

// ParentWithChildren is one parent joined with its children.
type ParentWithChildren struct {
	Parent
	Children []Child
}

// RelationalStore is the CRUD surface the benchmark exercises. All
// methods must be safe for concurrent use; the batch executor issues
// many updates and deletes at once.
type RelationalStore interface {
	// CreateParents bulk-inserts parents and returns the inserted count.
	CreateParents(ctx context.Context, parents []NewParent) (int64, error)
	// ParentIDs returns every parent identity in ascending order.
	ParentIDs(ctx context.Context) ([]int64, error)
	// CreateChildren bulk-inserts children into the variant's table.
	CreateChildren(ctx context.Context, v Variant, children []NewChild) (int64, error)
	// ChildIDs returns every child identity of the variant in ascending order.
	ChildIDs(ctx context.Context, v Variant) ([]int64, error)
	// ReadParentsWithChildren returns all parents joined with their
	// children of the given variant, ordered by parent id.
	ReadParentsWithChildren(ctx context.Context, v Variant) ([]ParentWithChildren, error)
	// UpdateChildParent rebinds one child to another parent.
	UpdateChildParent(ctx context.Context, v Variant, childID, parentID int64) (int64, error)
	// DeleteChild deletes one child by identity.
	DeleteChild(ctx context.Context, v Variant, childID int64) (int64, error)
	// DeleteChildren deletes the children whose identity is in ids.
	DeleteChildren(ctx context.Context, v Variant, ids []int64) (int64, error)
	// DeleteAllChildren empties the variant's table.
	DeleteAllChildren(ctx context.Context, v Variant) (int64, error)
	// DeleteParent deletes one parent and, by cascade, its children.
	DeleteParent(ctx context.Context, id int64) (int64, error)
	// DeleteAllParents deletes every parent and, by cascade, every child.
	DeleteAllParents(ctx context.Context) (int64, error)
	// CountParents returns the number of stored parents.
	CountParents(ctx context.Context) (int64, error)
	// CountChildren returns the number of stored children of the variant.
	CountChildren(ctx context.Context, v Variant) (int64, error)
	Close() error
}

// Reset empties foo, bar and baz.
func Reset(ctx context.Context, s RelationalStore) error {
	if _, err := s.DeleteAllParents(ctx); err != nil {
		return fmt.Errorf("delete parents: %w", err)
	}

	for _, v := range Variants() {
		if _, err := s.DeleteAllChildren(ctx, v); err != nil {
			return fmt.Errorf("delete %s: %w", v.Table(), err)
		}
	}

	return nil
}
