package responsetimecollector

import (
	"sync/atomic"
	"time"

	"github.com/jamiealquiza/tachymeter"
)

// tachymeterCollector uses the jamiealquiza/tachymeter library to capture and
// calculate timings locally over a rolling window.
type tachymeterCollector struct {
	tach   *tachymeter.Tachymeter
	window int64
	added  int64
}

func NewTachymeterCollector(window int) *tachymeterCollector {
	return &tachymeterCollector{
		tach: tachymeter.New(&tachymeter.Config{
			Size: window,
		}),
		window: int64(window),
	}
}

func (c *tachymeterCollector) Add(t time.Duration) {
	c.tach.AddTime(t)
	atomic.AddInt64(&c.added, 1)
}

func (c *tachymeterCollector) Len() int {
	added := atomic.LoadInt64(&c.added)
	if added > c.window {
		return int(c.window)
	}
	return int(added)
}

func (c *tachymeterCollector) Aggregate() *Aggregation {
	n := c.Len()
	if n == 0 {
		return &Aggregation{}
	}

	aggregation := c.tach.Calc()
	return &Aggregation{
		Count: n,
		P50:   aggregation.Time.P50,
		P75:   aggregation.Time.P75,
		P95:   aggregation.Time.P95,
	}
}

func (c *tachymeterCollector) Reset() {
	c.tach.Reset()
	atomic.StoreInt64(&c.added, 0)
}
