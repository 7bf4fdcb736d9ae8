package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadConfig_Defaults(t *testing.T) {
	config, err := ReadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8000, *config.Server.Port)
	assert.Equal(t, 10*time.Second, *config.Server.ReadTimeout)
	assert.Equal(t, "map", *config.Server.ResponseShape)
	assert.Equal(t, "file", *config.Dataset.Source)
	assert.Equal(t, true, *config.Dataset.Cache)
	assert.Equal(t, "data/latency.json", config.Dataset.File.Path)
	assert.Equal(t, []string{"*"}, config.CORS.AllowOrigins)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, config.CORS.AllowMethods)
	assert.Equal(t, []string{"Content-Type", "Authorization", "Accept"}, config.CORS.AllowHeaders)
	assert.Equal(t, "stdout", *config.Logging.Driver)
	assert.Equal(t, "tachymeter", *config.Monitoring.Collector)
	assert.Equal(t, "/internal/metrics", *config.Monitoring.Prometheus.Path)
	assert.Equal(t, "noop", *config.QueryLog.Driver)
}

func TestReadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  responseShape: envelope
dataset:
  source: sqlite
  cache: false
  loadTimeout: 2s
  sqlite:
    path: /var/lib/regionstats/latency.db
    table: samples
cors:
  allowOrigins:
    - https://dashboard.example.com
monitoring:
  collector: array
  window: 50
`)
	config, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, *config.Server.Port)
	assert.Equal(t, "envelope", *config.Server.ResponseShape)
	assert.Equal(t, "sqlite", *config.Dataset.Source)
	assert.Equal(t, false, *config.Dataset.Cache)
	assert.Equal(t, 2*time.Second, *config.Dataset.LoadTimeout)
	assert.Equal(t, "/var/lib/regionstats/latency.db", config.Dataset.SQLite.Path)
	assert.Equal(t, "samples", config.Dataset.SQLite.Table)
	assert.Equal(t, []string{"https://dashboard.example.com"}, config.CORS.AllowOrigins)
	assert.Equal(t, "array", *config.Monitoring.Collector)
	assert.Equal(t, 50, *config.Monitoring.Window)
}

func TestReadConfig_EnvOverride(t *testing.T) {
	require.NoError(t, os.Setenv("REGIONSTATS_DATASET_FILE_PATH", "/data/override.json"))
	defer os.Unsetenv("REGIONSTATS_DATASET_FILE_PATH")

	config, err := ReadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/override.json", config.Dataset.File.Path)
}

func TestReadConfig_MissingExplicitFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		contains string
	}{
		{
			name:     "Unknown dataset source",
			contents: "dataset:\n  source: s3\n",
			contains: "Source",
		},
		{
			name:     "Port out of range",
			contents: "server:\n  port: 70000\n",
			contains: "Port",
		},
		{
			name:     "Unknown response shape",
			contents: "server:\n  responseShape: list\n",
			contains: "ResponseShape",
		},
		{
			name:     "Unsupported CORS method",
			contents: "cors:\n  allowMethods: [GET, DELETE]\n",
			contains: "AllowMethods",
		},
		{
			name:     "InfluxDB logging without settings",
			contents: "logging:\n  driver: influxdb\n",
			contains: "logging.influxdb.host is required",
		},
		{
			name:     "Redis dataset without key",
			contents: "dataset:\n  source: redis\n  redis:\n    key: \"\"\n",
			contains: "dataset.redis.key is required",
		},
		{
			name:     "Prometheus path shadows the query route",
			contents: "monitoring:\n  prometheus:\n    path: /metrics\n",
			contains: "monitoring.prometheus.path must not be /metrics",
		},
		{
			name:     "Wildcard mixed with explicit origins",
			contents: "cors:\n  allowOrigins: [\"*\", \"https://a.example.com\"]\n",
			contains: "must not mix",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConfig(writeConfig(t, tt.contents))
			require.Error(t, err)

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "got err = %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
