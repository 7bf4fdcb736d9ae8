package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Observation is a single latency measurement for a region.
//
// When decoded, numeric fields accept numbers, numeric strings and booleans.
// Absent or null numbers decode as 0. A record whose region is absent or not
// a string is kept but never matches any region.
type Observation struct {
	Region    string  `json:"region" yaml:"region"`
	LatencyMs float64 `json:"latency_ms" yaml:"latency_ms"`
	UptimePct float64 `json:"uptime_pct" yaml:"uptime_pct"`
	// noRegion is set for records without a string region.
	noRegion bool
}

// HasRegion reports whether o can match a requested region.
func (o Observation) HasRegion() bool {
	return !o.noRegion
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	var fields map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return fmt.Errorf("expected an observation object: %w", err)
	}
	return o.fromFields(fields)
}

func (o *Observation) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected an observation mapping", value.Line)
	}
	var fields map[string]interface{}
	if err := value.Decode(&fields); err != nil {
		return err
	}
	if err := o.fromFields(fields); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

func (o *Observation) fromFields(fields map[string]interface{}) error {
	if fields == nil {
		return errors.New("expected an observation object; got null")
	}

	region, ok := fields["region"].(string)
	latency, err := toFloat(fields["latency_ms"])
	if err != nil {
		return fmt.Errorf("latency_ms: %w", err)
	}
	uptime, err := toFloat(fields["uptime_pct"])
	if err != nil {
		return fmt.Errorf("uptime_pct: %w", err)
	}

	*o = Observation{
		Region:    region,
		LatencyMs: latency,
		UptimePct: uptime,
		noRegion:  !ok,
	}
	return nil
}

// toFloat coerces a decoded JSON or YAML scalar to a finite float64.
func toFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%s is out of range", n)
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected a number; got %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not finite", v)
	}
	return f, nil
}
