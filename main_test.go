package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `[
	{"region": "apac", "latency_ms": 100, "uptime_pct": 99},
	{"region": "apac", "latency_ms": 200, "uptime_pct": 100},
	{"region": "emea", "latency_ms": 120, "uptime_pct": 98}
]`

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "latency.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(testDataset), 0644))

	configPath := filepath.Join(dir, "config.yaml")
	contents := "dataset:\n  file:\n    path: " + dataPath + "\n" + extra
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0644))
	return configPath
}

func execute(args ...string) (string, string, error) {
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAggregateCommand(t *testing.T) {
	configPath := writeTestConfig(t, "")

	stdout, _, err := execute("aggregate", "--config", configPath, "--regions", "apac,unknown", "--threshold", "150")

	require.NoError(t, err)
	assert.JSONEq(t, `{
		"apac": {"avg_latency": 150, "p95_latency": 195, "avg_uptime": 99.5, "breaches": 1},
		"unknown": {"avg_latency": null, "p95_latency": null, "avg_uptime": null, "breaches": 0}
	}`, stdout)
}

func TestAggregateCommand_ArrayShape(t *testing.T) {
	configPath := writeTestConfig(t, "server:\n  responseShape: array\n")

	stdout, _, err := execute("aggregate", "-c", configPath, "-r", "emea", "-t", "100")

	require.NoError(t, err)
	assert.JSONEq(t, `{"regions": [
		{"region": "emea", "avg_latency": 120, "p95_latency": 120, "avg_uptime": 98, "breaches": 1}
	]}`, stdout)
}

func TestAggregateCommand_RequiresFlags(t *testing.T) {
	configPath := writeTestConfig(t, "")

	_, _, err := execute("aggregate", "--config", configPath, "--regions", "apac")
	assert.Error(t, err)

	_, _, err = execute("aggregate", "--config", configPath, "--threshold", "150")
	assert.Error(t, err)
}

func TestAggregateCommand_DatasetUnavailable(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("dataset:\n  file:\n    path: /nonexistent/latency.json\n"), 0644))

	_, _, err := execute("aggregate", "--config", configPath, "--regions", "apac", "--threshold", "150")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset unavailable")
}

func TestValidateConfigCommand(t *testing.T) {
	stdout, _, err := execute("validate-config", "--config", writeTestConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "configuration is valid\n", stdout)

	invalidPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(invalidPath, []byte("dataset:\n  source: s3\n"), 0644))
	_, stderr, err := execute("validate-config", "--config", invalidPath)
	assert.Error(t, err)
	assert.Contains(t, stderr, "Source")
}
