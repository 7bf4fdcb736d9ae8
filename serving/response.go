package serving

import (
	"fmt"

	"github.com/kcz17/regionstats/stats"
)

// ResponseShape selects how a stats.Result is laid out in the POST /metrics
// response body.
type ResponseShape string

const (
	// ShapeMap is the region mapping itself: {"apac": {...}}.
	ShapeMap ResponseShape = "map"
	// ShapeEnvelope nests the mapping: {"regions": {"apac": {...}}}.
	ShapeEnvelope ResponseShape = "envelope"
	// ShapeArray lists regions in first-requested order:
	// {"regions": [{"region": "apac", ...}]}.
	ShapeArray ResponseShape = "array"
)

func ParseResponseShape(s string) (ResponseShape, error) {
	switch shape := ResponseShape(s); shape {
	case ShapeMap, ShapeEnvelope, ShapeArray:
		return shape, nil
	default:
		return "", fmt.Errorf("expected response shape one of {%s|%s|%s}; got %s", ShapeMap, ShapeEnvelope, ShapeArray, s)
	}
}

type regionEntry struct {
	Region string `json:"region"`
	stats.RegionStats
}

// Render returns a JSON-encodable value for result. regions is the request's
// region list and only determines the order of the array shape.
func (s ResponseShape) Render(result stats.Result, regions []string) interface{} {
	switch s {
	case ShapeEnvelope:
		return map[string]stats.Result{"regions": result}
	case ShapeArray:
		entries := make([]regionEntry, 0, len(result))
		seen := make(map[string]bool, len(result))
		for _, region := range regions {
			if seen[region] {
				continue
			}
			seen[region] = true
			entries = append(entries, regionEntry{Region: region, RegionStats: result[region]})
		}
		return map[string][]regionEntry{"regions": entries}
	default:
		return result
	}
}
