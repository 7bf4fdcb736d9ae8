package logging

import (
	"log"
)

// stdoutLogger logs the output to standard output.
type stdoutLogger struct{}

func NewStdoutLogger() *stdoutLogger {
	return &stdoutLogger{}
}

func (*stdoutLogger) LogResponseTime(_ float64) {
	// Do not log non-aggregated response times to stdout.
	return
}

func (*stdoutLogger) LogAggregateResponseTimes(p50 float64, p75 float64, p95 float64) {
	log.Printf("p50: %.3f, p75: %.3f, p95: %.3f\n", p50, p75, p95)
}

func (*stdoutLogger) LogDatasetLoad(records int, t float64) {
	log.Printf("dataset loaded: %d records in %.3fs\n", records, t)
}

func (*stdoutLogger) Close() {
	return
}
