// Package dataset reads the read-only set of latency observations the
// service aggregates over.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrDataUnavailable is returned when the backing store cannot be read or
// parsed. No partial dataset is ever returned alongside it.
var ErrDataUnavailable = errors.New("dataset unavailable")

// Loader reads the entire dataset. Callers must treat the returned slice as
// read-only since loaders may share it between calls.
type Loader interface {
	Load(ctx context.Context) ([]Observation, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]Observation, error)

func (f LoaderFunc) Load(ctx context.Context) ([]Observation, error) {
	return f(ctx)
}

// unavailable wraps err so that errors.Is(err, ErrDataUnavailable) holds.
func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// Format is the encoding of a serialised dataset.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	return [...]string{"json", "yaml"}[f]
}

// Decode parses a serialised dataset. The document must be a sequence of
// observations.
func Decode(b []byte, format Format) ([]Observation, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, errors.New("empty dataset document")
	}

	var records []Observation
	switch format {
	case JSON:
		if trimmed[0] != '[' {
			return nil, errors.New("expected a JSON array of observations")
		}
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("could not parse JSON dataset: %w", err)
		}
	case YAML:
		var root yaml.Node
		if err := yaml.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("could not parse YAML dataset: %w", err)
		}
		if len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
			return nil, errors.New("expected a YAML sequence of observations")
		}
		if err := root.Content[0].Decode(&records); err != nil {
			return nil, fmt.Errorf("could not parse YAML dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown dataset format %d", format)
	}

	if records == nil {
		records = []Observation{}
	}
	return records, nil
}

// Instrument calls report after every successful load of loader with the
// number of records read and the time taken.
func Instrument(loader Loader, report func(records int, d time.Duration)) Loader {
	return LoaderFunc(func(ctx context.Context) ([]Observation, error) {
		startTime := time.Now()
		records, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		report(len(records), time.Since(startTime))
		return records, nil
	})
}
