package serving

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kcz17/regionstats/logging"
	"github.com/kcz17/regionstats/responsetimecollector"
)

// MonitorLoop collects the time taken to answer each request and reports
// p50, p75 and p95 response times to the logger at a regular interval.
type MonitorLoop struct {
	responseTimeCollector responsetimecollector.Collector
	logger                logging.Logger
	interval              time.Duration
	// loopMux guards loopStarted, loopWG and loopStop so Start and Stop may
	// be called from different goroutines.
	loopMux     *sync.Mutex
	loopStarted bool
	// loopWG allows the spawned goroutine to be gracefully stopped.
	loopWG   *sync.WaitGroup
	loopStop chan bool
}

func NewMonitorLoop(collector responsetimecollector.Collector, logger logging.Logger, interval time.Duration) (*MonitorLoop, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("NewMonitorLoop() expected interval > 0; got %v", interval)
	}

	return &MonitorLoop{
		responseTimeCollector: collector,
		logger:                logger,
		interval:              interval,
		loopMux:               &sync.Mutex{},
	}, nil
}

func (l *MonitorLoop) Start() error {
	l.loopMux.Lock()
	defer l.loopMux.Unlock()
	if l.loopStarted {
		return errors.New("monitor loop already started")
	}

	l.loopStop = make(chan bool, 1)
	l.loopWG = &sync.WaitGroup{}
	l.loopWG.Add(1)
	go l.loop()

	l.loopStarted = true
	return nil
}

// Stop halts the loop and clears collected response times so a restarted
// loop does not report stale data.
func (l *MonitorLoop) Stop() error {
	l.loopMux.Lock()
	defer l.loopMux.Unlock()
	if !l.loopStarted {
		return errors.New("monitor loop not yet started")
	}

	close(l.loopStop)
	l.loopWG.Wait()
	l.responseTimeCollector.Reset()

	l.loopStarted = false
	return nil
}

// AddResponseTime is safe to call whether or not the loop is running.
func (l *MonitorLoop) AddResponseTime(t time.Duration) {
	l.responseTimeCollector.Add(t)
	l.logger.LogResponseTime(t.Seconds())
}

func (l *MonitorLoop) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.loopWG.Done()
	for {
		select {
		case <-ticker.C:
			aggregation := l.responseTimeCollector.Aggregate()
			if aggregation.Count == 0 {
				continue
			}

			// The logger operates with seconds.
			p50 := float64(aggregation.P50) / float64(time.Second)
			p75 := float64(aggregation.P75) / float64(time.Second)
			p95 := float64(aggregation.P95) / float64(time.Second)
			l.logger.LogAggregateResponseTimes(p50, p75, p95)
		case <-l.loopStop:
			return
		}
	}
}
