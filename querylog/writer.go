// Package querylog records the queries the service answers so that query
// patterns can be analysed outside the service.
package querylog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event describes one answered query.
type Event struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Regions     []string  `json:"regions"`
	ThresholdMs float64   `json:"threshold_ms"`
	// Matched is the number of distinct requested regions with at least one
	// observation. Unmatched regions received empty statistics.
	Matched   int           `json:"matched"`
	Unmatched int           `json:"unmatched"`
	Duration  time.Duration `json:"duration_ns"`
}

func NewEvent(regions []string, thresholdMs float64, matched int, unmatched int, duration time.Duration) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Time:        time.Now().UTC(),
		Regions:     regions,
		ThresholdMs: thresholdMs,
		Matched:     matched,
		Unmatched:   unmatched,
		Duration:    duration,
	}
}

type Writer interface {
	// Write records an answered query. Implementations must not block the
	// request path on I/O.
	Write(e *Event)
	Close()
}

// Drivers accepted by New.
const (
	Noop     = "noop"
	InfluxDB = "influxdb"
	RMQ      = "rmq"
)

type Options struct {
	InfluxDB struct {
		Host   string
		Token  string
		Org    string
		Bucket string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Queue    string
	}
}

func New(driver string, options Options) (Writer, error) {
	switch driver {
	case Noop:
		return NewNoopWriter(), nil
	case InfluxDB:
		return NewInfluxDBWriter(options.InfluxDB.Host, options.InfluxDB.Token, options.InfluxDB.Org, options.InfluxDB.Bucket), nil
	case RMQ:
		return NewRMQWriter(options.Redis.Addr, options.Redis.Password, options.Redis.DB, options.Redis.Queue)
	default:
		return nil, fmt.Errorf("expected query log driver one of {%s|%s|%s}; got %s", Noop, InfluxDB, RMQ, driver)
	}
}

type noopWriter struct{}

func NewNoopWriter() *noopWriter {
	return &noopWriter{}
}

func (*noopWriter) Write(*Event) {}

func (*noopWriter) Close() {}
