package logging

import "fmt"

type Logger interface {
	LogResponseTime(t float64)                                       // Takes in response time in seconds.
	LogAggregateResponseTimes(p50 float64, p75 float64, p95 float64) // Takes in percentiles in seconds.
	LogDatasetLoad(records int, t float64)                           // Takes in load time in seconds.
	Close()
}

// Drivers accepted by New.
const (
	Noop     = "noop"
	Stdout   = "stdout"
	InfluxDB = "influxdb"
)

type InfluxDBOptions struct {
	Host   string
	Token  string
	Org    string
	Bucket string
}

func New(driver string, influx InfluxDBOptions) (Logger, error) {
	switch driver {
	case Noop:
		return NewNoopLogger(), nil
	case Stdout:
		return NewStdoutLogger(), nil
	case InfluxDB:
		return NewInfluxDBLogger(influx.Host, influx.Token, influx.Org, influx.Bucket), nil
	default:
		return nil, fmt.Errorf("expected logging driver one of {%s|%s|%s}; got %s", Noop, Stdout, InfluxDB, driver)
	}
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogResponseTime(float64) {
	return
}

func (*noopLogger) LogAggregateResponseTimes(float64, float64, float64) {
	return
}

func (*noopLogger) LogDatasetLoad(int, float64) {
	return
}

func (*noopLogger) Close() {
	return
}
