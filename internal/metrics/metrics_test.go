package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/internal/discovery"
	"github.com/jgoulah/usagesync/internal/feed"
	"github.com/jgoulah/usagesync/internal/pipeline"
	"github.com/jgoulah/usagesync/pkg/models"
)

func TestObserveStream(t *testing.T) {
	r := New()
	mark := time.Date(2025, 7, 1, 1, 0, 0, 0, time.UTC)
	r.ObserveStream(&pipeline.Result{
		Stream:    models.Gas,
		NewFiles:  []discovery.File{{Path: "a.csv"}, {Path: "b.csv"}},
		Added:     48,
		Dropped:   2,
		Records:   make([]models.UsageRecord, 96),
		Watermark: &mark,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.filesProcessed.WithLabelValues("gas")))
	assert.Equal(t, 48.0, testutil.ToFloat64(r.rowsAdded.WithLabelValues("gas")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rowsDropped.WithLabelValues("gas")))
	assert.Equal(t, 96.0, testutil.ToFloat64(r.snapshotRows.WithLabelValues("gas")))
	assert.Equal(t, float64(mark.Unix()), testutil.ToFloat64(r.watermark.WithLabelValues("gas")))
}

func TestObserveWeatherAndFinish(t *testing.T) {
	r := New()
	r.ObserveWeather(&feed.SyncResult{Fetched: 10, Total: 110})
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	r.Finish(start, start.Add(1500*time.Millisecond))

	assert.Equal(t, 10.0, testutil.ToFloat64(r.weatherFetched))
	assert.Equal(t, 110.0, testutil.ToFloat64(r.weatherRows))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.runDuration))
}

func TestPush(t *testing.T) {
	var path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		body, _ = io.ReadAll(req.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	r := New()
	r.ObserveWeather(&feed.SyncResult{Fetched: 3})
	require.NoError(t, r.Push(context.Background(), srv.URL, "usagesync"))
	assert.Equal(t, "/metrics/job/usagesync", path)
	assert.NotEmpty(t, body)

	assert.Error(t, r.Push(context.Background(), "", "usagesync"))
}
