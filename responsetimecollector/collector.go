// Package responsetimecollector records how long the service takes to
// answer requests and summarises those timings as percentiles.
package responsetimecollector

import (
	"fmt"
	"time"
)

type Aggregation struct {
	Count int           // Count is the number of response times aggregated.
	P50   time.Duration // P50 is the 50th percentile response time.
	P75   time.Duration // P75 is the 75th percentile response time.
	P95   time.Duration // P95 is the 95th percentile response time.
}

type Collector interface {
	Add(t time.Duration)     // Add sends a new response time to the collector.
	Len() int                // Len gets the number of response times currently held.
	Aggregate() *Aggregation // Aggregate calculates percentiles over the collector's window.
	Reset()                  // Reset resets the state of the collector for reuse.
}

// Drivers accepted by New.
const (
	Tachymeter = "tachymeter"
	Array      = "array"
)

// New creates a collector holding at most window response times.
func New(driver string, window int) (Collector, error) {
	if window < 1 {
		return nil, fmt.Errorf("responsetimecollector.New() expected window >= 1; got %d", window)
	}

	switch driver {
	case Tachymeter:
		return NewTachymeterCollector(window), nil
	case Array:
		return NewArrayCollector(window), nil
	default:
		return nil, fmt.Errorf("responsetimecollector.New() expected driver one of {%s|%s}; got %s", Tachymeter, Array, driver)
	}
}
