package logging

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{name: "noop", driver: Noop},
		{name: "stdout", driver: Stdout},
		{name: "unknown driver", driver: "syslog", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.driver, InfluxDBOptions{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			logger.Close()
		})
	}
}

func TestStdoutLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewStdoutLogger()
	logger.LogResponseTime(0.5)
	assert.Empty(t, buf.String(), "individual response times are not logged")

	logger.LogAggregateResponseTimes(0.001, 0.002, 0.003)
	assert.Contains(t, buf.String(), "p50: 0.001, p75: 0.002, p95: 0.003")

	logger.LogDatasetLoad(42, 0.25)
	assert.Contains(t, buf.String(), "dataset loaded: 42 records in 0.250s")
}
