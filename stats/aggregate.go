// Package stats computes per-region latency and uptime statistics over a
// set of observations.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/kcz17/regionstats/dataset"
	mstats "github.com/montanaflynn/stats"
)

// ErrInvalidQuery is returned for queries which cannot be aggregated.
var ErrInvalidQuery = errors.New("invalid query")

var validate = validator.New()

// RegionList is a list of region names. Decoding rejects null entries, which
// would otherwise become the empty region name.
type RegionList []string

func (l *RegionList) UnmarshalJSON(b []byte) error {
	var names []*string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	if names == nil {
		*l = nil
		return nil
	}

	list := make(RegionList, len(names))
	for i, name := range names {
		if name == nil {
			return fmt.Errorf("regions[%d] must be a string; got null", i)
		}
		list[i] = *name
	}
	*l = list
	return nil
}

// Query selects the regions to aggregate and the latency above which an
// observation counts as a breach.
type Query struct {
	Regions     RegionList `json:"regions" validate:"required"`
	ThresholdMs *float64   `json:"threshold_ms" validate:"required"`
}

// Validate checks that both fields were supplied. An empty regions list is
// valid.
func (q *Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return fmt.Errorf("%w: %s is required", ErrInvalidQuery, jsonFieldName(validationErrors[0].Field()))
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if math.IsNaN(*q.ThresholdMs) {
		return fmt.Errorf("%w: threshold_ms must be a number", ErrInvalidQuery)
	}
	return nil
}

func jsonFieldName(field string) string {
	switch field {
	case "Regions":
		return "regions"
	case "ThresholdMs":
		return "threshold_ms"
	default:
		return field
	}
}

// RegionStats summarises the observations of one region. The numeric fields
// are nil when the region has no observations.
type RegionStats struct {
	AvgLatency *float64 `json:"avg_latency"`
	P95Latency *float64 `json:"p95_latency"`
	AvgUptime  *float64 `json:"avg_uptime"`
	Breaches   int      `json:"breaches"`
}

// Matched reports whether any observation contributed to s.
func (s RegionStats) Matched() bool {
	return s.AvgLatency != nil
}

// Result maps each requested region to its statistics.
type Result map[string]RegionStats

// Aggregate computes RegionStats for every distinct region in regions.
// Regions without observations get the empty RegionStats rather than an
// error. records is never modified, so it may be shared between concurrent
// callers.
func Aggregate(records []dataset.Observation, regions []string, thresholdMs float64) Result {
	result := make(Result, len(regions))
	if len(regions) == 0 {
		return result
	}

	wanted := make(map[string][]int, len(regions))
	for _, region := range regions {
		wanted[region] = nil
	}
	for i, r := range records {
		if !r.HasRegion() {
			continue
		}
		if indices, ok := wanted[r.Region]; ok {
			wanted[r.Region] = append(indices, i)
		}
	}

	for region, indices := range wanted {
		result[region] = regionStats(records, indices, thresholdMs)
	}
	return result
}

func regionStats(records []dataset.Observation, indices []int, thresholdMs float64) RegionStats {
	if len(indices) == 0 {
		return RegionStats{}
	}

	latencies := make([]float64, len(indices))
	uptimes := make([]float64, len(indices))
	breaches := 0
	for i, idx := range indices {
		latencies[i] = records[idx].LatencyMs
		uptimes[i] = records[idx].UptimePct
		if records[idx].LatencyMs > thresholdMs {
			breaches++
		}
	}

	// mstats sums in input order, so means are reproducible
	// regardless of platform. Both inputs are non-empty here.
	avgLatency, _ := mstats.Mean(latencies)
	avgUptime, _ := mstats.Mean(uptimes)

	// latencies is our own copy so it can be sorted in place.
	sort.Float64s(latencies)
	p95 := quantileSorted(latencies, P95)

	return RegionStats{
		AvgLatency: &avgLatency,
		P95Latency: &p95,
		AvgUptime:  &avgUptime,
		Breaches:   breaches,
	}
}

// Run validates q and aggregates records with it.
func Run(records []dataset.Observation, q *Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return Aggregate(records, q.Regions, *q.ThresholdMs), nil
}
