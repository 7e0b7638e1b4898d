// Package metrics records run statistics and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jgoulah/usagesync/internal/feed"
	"github.com/jgoulah/usagesync/internal/pipeline"
)

const namespace = "usagesync"

// Recorder holds the metrics of a single run
type Recorder struct {
	registry *prometheus.Registry

	filesProcessed *prometheus.CounterVec
	rowsAdded      *prometheus.CounterVec
	rowsDropped    *prometheus.CounterVec
	rowsFiltered   *prometheus.CounterVec
	snapshotRows   *prometheus.GaugeVec
	watermark      *prometheus.GaugeVec
	weatherFetched prometheus.Counter
	weatherRows    prometheus.Gauge
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// New creates a recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Export files consumed.",
		}, []string{"stream"}),
		rowsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_added_total",
			Help:      "Rows added to snapshots.",
		}, []string{"stream"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows skipped because their date could not be parsed.",
		}, []string{"stream"}),
		rowsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Rows at or before the stream watermark.",
		}, []string{"stream"}),
		snapshotRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Rows in the stream snapshot.",
		}, []string{"stream"}),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Newest ingested reading, as wall-clock seconds.",
		}, []string{"stream"}),
		weatherFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_readings_fetched_total",
			Help:      "Readings returned by the weather feed.",
		}),
		weatherRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_snapshot_rows",
			Help:      "Rows in the weather snapshot.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	r.registry.MustRegister(
		r.filesProcessed,
		r.rowsAdded,
		r.rowsDropped,
		r.rowsFiltered,
		r.snapshotRows,
		r.watermark,
		r.weatherFetched,
		r.weatherRows,
		r.runDuration,
		r.lastSuccess,
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStream records the outcome of a stream ingestion
func (r *Recorder) ObserveStream(res *pipeline.Result) {
	stream := string(res.Stream)
	r.filesProcessed.WithLabelValues(stream).Add(float64(len(res.NewFiles)))
	r.rowsAdded.WithLabelValues(stream).Add(float64(res.Added))
	r.rowsDropped.WithLabelValues(stream).Add(float64(res.Dropped))
	r.rowsFiltered.WithLabelValues(stream).Add(float64(res.Filtered))
	r.snapshotRows.WithLabelValues(stream).Set(float64(len(res.Records)))
	if res.Watermark != nil {
		r.watermark.WithLabelValues(stream).Set(float64(res.Watermark.Unix()))
	}
}

// ObserveWeather records the outcome of a weather sync
func (r *Recorder) ObserveWeather(res *feed.SyncResult) {
	r.weatherFetched.Add(float64(res.Fetched))
	r.weatherRows.Set(float64(res.Total))
}

// Finish records the run duration and success time
func (r *Recorder) Finish(started, finished time.Time) {
	r.runDuration.Set(finished.Sub(started).Seconds())
	r.lastSuccess.Set(float64(finished.Unix()))
}

// Push sends the recorded metrics to a Pushgateway
func (r *Recorder) Push(ctx context.Context, endpoint, job string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if strings.TrimSpace(job) == "" {
		return errors.New("pushgateway job is required")
	}
	return push.New(endpoint, job).Gatherer(r.registry).PushContext(ctx)
}
