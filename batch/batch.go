// Package batch executes large sets of independent store writes as a
// sequence of bounded concurrent fan-outs.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSize bounds in-flight requests per batch.
const DefaultSize = 10_000

// Request is one write against the store. It returns the number of rows
// it affected.
type Request func(ctx context.Context) (int64, error)

// Outcome summarizes an executor run.
type Outcome struct {
	Count    int64
	Duration time.Duration
	Batches  int
}

// Executor splits requests into contiguous batches. All requests of a
// batch run concurrently; batch N+1 starts only after batch N finished.
type Executor struct {
	size int
}

// New returns an Executor with the given batch size. A non-positive
// size selects DefaultSize.
func New(size int) *Executor {
	if size <= 0 {
		size = DefaultSize
	}

	return &Executor{size: size}
}

// Size returns the batch size.
func (e *Executor) Size() int { return e.size }

// Bounds is a half-open [Start, End) range of request indexes.
type Bounds struct {
	Start, End int
}

// Split partitions n items into ceil(n/size) contiguous batches.
func Split(n, size int) []Bounds {
	if n <= 0 || size <= 0 {
		return nil
	}

	out := make([]Bounds, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, Bounds{Start: start, End: min(start+size, n)})
	}

	return out
}

// Run issues the requests batch by batch. Only the fan-out of each batch
// is timed; the durations and affected counts are summed. The first
// failing request fails its batch and aborts the run.
func (e *Executor) Run(ctx context.Context, reqs []Request) (Outcome, error) {
	var out Outcome

	for i, b := range Split(len(reqs), e.size) {
		batch := reqs[b.Start:b.End]
		counts := make([]int64, len(batch))

		g, gctx := errgroup.WithContext(ctx)

		start := time.Now()
		for j, req := range batch {
			j, req := j, req
			g.Go(func() error {
				n, err := req(gctx)
				if err != nil {
					return err
				}
				counts[j] = n

				return nil
			})
		}
		err := g.Wait()
		out.Duration += time.Since(start)

		if err != nil {
			return out, fmt.Errorf("batch %d (requests %d-%d): %w",
				i, b.Start, b.End-1, err)
		}

		for _, n := range counts {
			out.Count += n
		}
		out.Batches++
	}

	return out, nil
}
