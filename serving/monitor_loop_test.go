package serving

import (
	"sync"
	"testing"
	"time"

	"github.com/kcz17/regionstats/responsetimecollector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mux        sync.Mutex
	aggregates [][3]float64
	individual int
}

func (l *recordingLogger) LogResponseTime(float64) {
	l.mux.Lock()
	l.individual++
	l.mux.Unlock()
}

func (l *recordingLogger) LogAggregateResponseTimes(p50 float64, p75 float64, p95 float64) {
	l.mux.Lock()
	l.aggregates = append(l.aggregates, [3]float64{p50, p75, p95})
	l.mux.Unlock()
}

func (l *recordingLogger) LogDatasetLoad(int, float64) {}

func (l *recordingLogger) Close() {}

func (l *recordingLogger) aggregateCount() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return len(l.aggregates)
}

func TestMonitorLoop_ReportsAggregates(t *testing.T) {
	logger := &recordingLogger{}
	collector := responsetimecollector.NewArrayCollector(10)
	loop, err := NewMonitorLoop(collector, logger, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, loop.Start())
	// An empty collector is not reported.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, logger.aggregateCount())

	loop.AddResponseTime(2 * time.Second)
	assert.Eventually(t, func() bool { return logger.aggregateCount() > 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, loop.Stop())

	logger.mux.Lock()
	assert.Equal(t, [3]float64{2, 2, 2}, logger.aggregates[0])
	assert.Equal(t, 1, logger.individual)
	logger.mux.Unlock()
	assert.Equal(t, 0, collector.Len(), "Stop resets the collector")
}

func TestMonitorLoop_StartStop(t *testing.T) {
	loop, err := NewMonitorLoop(responsetimecollector.NewArrayCollector(1), &recordingLogger{}, time.Second)
	require.NoError(t, err)

	assert.Error(t, loop.Stop(), "stopping before starting")
	require.NoError(t, loop.Start())
	assert.Error(t, loop.Start(), "starting twice")
	require.NoError(t, loop.Stop())
	require.NoError(t, loop.Start(), "restarting after stop")
	require.NoError(t, loop.Stop())
}

func TestNewMonitorLoop_RejectsNonPositiveInterval(t *testing.T) {
	_, err := NewMonitorLoop(responsetimecollector.NewArrayCollector(1), &recordingLogger{}, 0)
	assert.Error(t, err)
}
