package harness

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Reduce computes min, avg and max of samples. It returns the zero Stats
// for an empty slice.
func Reduce(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	lo, hi, sum := samples[0], samples[0], 0.0
	for _, s := range samples {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
		sum += s
	}

	// Summation rounding must not push the mean outside the range.
	avg := math.Max(lo, math.Min(hi, sum/float64(len(samples))))

	return Stats{Min: lo, Avg: avg, Max: hi}
}

// Aggregate runs trials sequentially, each against a freshly reset
// store, and reduces the samples of every phase reported by all trials.
func Aggregate(ctx context.Context, runner TrialRunner, p Params, trials int) (AggregatedResult, error) {
	if trials <= 0 {
		return nil, ErrNoTrials
	}

	samples := make(map[Phase][]float64, len(Phases()))

	for i := 0; i < trials; i++ {
		res, err := runner.Run(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("trial %d/%d: %w", i+1, trials, err)
		}

		for phase, d := range res {
			samples[phase] = append(samples[phase], Milliseconds(d))
		}
	}

	out := make(AggregatedResult, len(samples))
	for phase, s := range samples {
		if len(s) == trials {
			out[phase] = Reduce(s)
		}
	}

	return out, nil
}
