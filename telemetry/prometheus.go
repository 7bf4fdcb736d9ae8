// Package telemetry exports service metrics for Prometheus scraping.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionstats",
		Name:      "queries_total",
		Help:      "Total number of POST /metrics queries by response status code",
	}, []string{"code"})

	RegionsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionstats",
		Name:      "regions_requested_total",
		Help:      "Total number of distinct regions aggregated across all queries",
	})

	RegionsUnmatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionstats",
		Name:      "regions_unmatched_total",
		Help:      "Total number of requested regions with no observations",
	})

	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "regionstats",
		Name:      "aggregation_duration_seconds",
		Help:      "Time spent aggregating observations for a query",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	DatasetRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "regionstats",
		Name:      "dataset_records",
		Help:      "Number of observations read by the most recent dataset load",
	})

	DatasetLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "regionstats",
		Name:      "dataset_load_duration_seconds",
		Help:      "Time spent reading the dataset from its backing store",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
