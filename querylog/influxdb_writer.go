package querylog

import (
	"log"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

type InfluxDBWriter struct {
	client      influxdb2.Client
	asyncWriter api.WriteAPI
}

func NewInfluxDBWriter(addr, authToken, org, bucket string) *InfluxDBWriter {
	options := influxdb2.DefaultOptions()
	options.WriteOptions().SetBatchSize(500)
	options.WriteOptions().SetFlushInterval(1000)

	client := influxdb2.NewClientWithOptions(addr, authToken, options)
	writeAPI := client.WriteAPI(org, bucket)

	// Create a goroutine for reading and logging async write errors.
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("influxdb2 query log async write error: %v\n", err)
		}
	}()

	return &InfluxDBWriter{
		client:      client,
		asyncWriter: writeAPI,
	}
}

func (w *InfluxDBWriter) Write(e *Event) {
	p := influxdb2.NewPointWithMeasurement("regionstats_query").
		AddTag("query_id", e.ID).
		AddField("regions", strings.Join(e.Regions, ",")).
		AddField("threshold_ms", e.ThresholdMs).
		AddField("matched", e.Matched).
		AddField("unmatched", e.Unmatched).
		AddField("duration_s", e.Duration.Seconds()).
		SetTime(e.Time)
	w.asyncWriter.WritePoint(p)
}

func (w *InfluxDBWriter) Close() {
	w.asyncWriter.Flush()
	w.client.Close()
}
