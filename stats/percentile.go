package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// P95 is the quantile reported as p95_latency.
const P95 = 0.95

// ErrEmptyInput is returned when a statistic is requested over no values.
var ErrEmptyInput = errors.New("input must not be empty")

// Quantile returns the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between the closest ranks: the zero-based rank
// k = (n-1)*q is interpolated between floor(k) and ceil(k) of the sorted
// values. values is not modified.
//
// montanaflynn/stats and gonum's stat.Quantile use different rank
// definitions and give different answers for small inputs.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("quantile must be between 0 and 1; got %v", q)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return quantileSorted(sorted, q), nil
}

// quantileSorted expects sorted to be non-empty and ascending.
func quantileSorted(sorted []float64, q float64) float64 {
	k := float64(len(sorted)-1) * q
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}

	lo := sorted[int(f)]
	hi := sorted[int(c)]
	return lo + (hi-lo)*(k-f)
}
