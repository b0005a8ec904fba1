package workload

import (
	"errors"
	mrand "math/rand"
	"slices"
)

// ErrEmptyPool is returned when no parent identities are available.
var ErrEmptyPool = errors.New("parent pool is empty")

// ParentPool is the set of parent identities children may reference.
//
// Stores normally assign dense, contiguous identities, in which case a
// draw is uniform over [min, max]. When the set has gaps a draw indexes
// into the identities instead, so a sampled id always exists.
type ParentPool struct {
	ids   []int64
	min   int64
	max   int64
	dense bool
}

// NewParentPool builds a pool from the fetched parent identities.
func NewParentPool(ids []int64) (*ParentPool, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyPool
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]

	return &ParentPool{
		ids:   sorted,
		min:   lo,
		max:   hi,
		dense: hi-lo+1 == int64(len(sorted)),
	}, nil
}

// Len returns the number of distinct identities.
func (p *ParentPool) Len() int { return len(p.ids) }

// Bounds returns the smallest and largest identity.
func (p *ParentPool) Bounds() (int64, int64) { return p.min, p.max }

// Dense reports whether the identities are contiguous.
func (p *ParentPool) Dense() bool { return p.dense }

// Contains reports whether id is in the pool.
func (p *ParentPool) Contains(id int64) bool {
	_, ok := slices.BinarySearch(p.ids, id)

	return ok
}

func (p *ParentPool) pick(rng *mrand.Rand) int64 {
	if p.dense {
		return p.min + rng.Int63n(p.max-p.min+1)
	}

	return p.ids[rng.Intn(len(p.ids))]
}
