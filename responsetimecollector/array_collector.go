package responsetimecollector

import (
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// arrayCollector keeps the most recent response timings in a ring buffer and
// computes percentiles over all of them on demand. Aggregate is O(n log n) in
// the window size, so windows should stay in the low thousands.
type arrayCollector struct {
	responseTimesSeconds    []float64
	next                    int
	full                    bool
	responseTimesSecondsMux *sync.Mutex
}

func NewArrayCollector(window int) *arrayCollector {
	return &arrayCollector{
		responseTimesSeconds:    make([]float64, window),
		responseTimesSecondsMux: &sync.Mutex{},
	}
}

func (c *arrayCollector) Add(t time.Duration) {
	c.responseTimesSecondsMux.Lock()
	c.responseTimesSeconds[c.next] = float64(t) / float64(time.Second)
	c.next++
	if c.next == len(c.responseTimesSeconds) {
		c.next = 0
		c.full = true
	}
	c.responseTimesSecondsMux.Unlock()
}

func (c *arrayCollector) Len() int {
	c.responseTimesSecondsMux.Lock()
	defer c.responseTimesSecondsMux.Unlock()
	return c.len()
}

func (c *arrayCollector) len() int {
	if c.full {
		return len(c.responseTimesSeconds)
	}
	return c.next
}

func (c *arrayCollector) Aggregate() *Aggregation {
	// The stats package creates a copy of the array, so we must hold onto the
	// mutex while calculations are being made.
	c.responseTimesSecondsMux.Lock()
	defer c.responseTimesSecondsMux.Unlock()

	// The stats package requires input arrays to be non-empty.
	n := c.len()
	if n == 0 {
		return &Aggregation{}
	}
	times := c.responseTimesSeconds[:n]

	p50, err := stats.Median(times)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p50: %w", err))
	}
	p75, err := stats.Percentile(times, 75)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p75: %w", err))
	}
	p95, err := stats.Percentile(times, 95)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p95: %w", err))
	}

	return &Aggregation{
		Count: n,
		P50:   time.Duration(p50 * float64(time.Second)),
		P75:   time.Duration(p75 * float64(time.Second)),
		P95:   time.Duration(p95 * float64(time.Second)),
	}
}

func (c *arrayCollector) Reset() {
	c.responseTimesSecondsMux.Lock()
	c.next = 0
	c.full = false
	c.responseTimesSecondsMux.Unlock()
}
