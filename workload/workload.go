// Package workload generates deterministic synthetic rows for the
// benchmark: parent names, child labels and foreign key assignments.
package workload

import (
	mrand "math/rand"

	"github.com/weiihann/fkbench/store"
)

// Generator produces rows from an explicit random source. It is not
// safe for concurrent use; the runner builds all requests before any
// fan-out starts.
type Generator struct {
	rng *mrand.Rand
}

// NewGenerator wraps rng.
func NewGenerator(rng *mrand.Rand) *Generator {
	return &Generator{rng: rng}
}

// NewSeededGenerator creates a Generator with its own source.
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(mrand.New(mrand.NewSource(seed)))
}

// Parents returns count parents with "First Last" names.
func (g *Generator) Parents(count int) []store.NewParent {
	out := make([]store.NewParent, count)
	for i := range out {
		out[i] = store.NewParent{Name: g.name()}
	}

	return out
}

// Children returns count children labeled with a state code, each bound
// to a parent drawn from pool.
func (g *Generator) Children(count int, pool *ParentPool) []store.NewChild {
	out := make([]store.NewChild, count)
	for i := range out {
		out[i] = store.NewChild{
			Label:    g.state(),
			ParentID: pool.pick(g.rng),
		}
	}

	return out
}

// Reassign draws the new parent for a foreign key rebind.
func (g *Generator) Reassign(pool *ParentPool) int64 {
	return pool.pick(g.rng)
}

// Sample returns n identities drawn from ids without replacement. ids is
// not modified. n is clamped to len(ids).
func (g *Generator) Sample(ids []int64, n int) []int64 {
	n = max(0, min(n, len(ids)))

	buf := make([]int64, len(ids))
	copy(buf, ids)

	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + g.rng.Intn(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}

	return buf[:n]
}

func (g *Generator) name() string {
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]

	return first + " " + last
}

func (g *Generator) state() string {
	return states[g.rng.Intn(len(states))]
}
