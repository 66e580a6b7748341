package metrics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	stats Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (Stats, error) { return f.stats, f.err }

func TestCollectSetsGauges(t *testing.T) {
	Collect(context.Background(), fakeStats{stats: Stats{
		ActivePhotos:   12,
		TrashedPhotos:  3,
		FavoritePhotos: 5,
		Folders:        2,
	}})

	assert.Equal(t, 12.0, testutil.ToFloat64(LibraryPhotos.WithLabelValues("active")))
	assert.Equal(t, 3.0, testutil.ToFloat64(LibraryPhotos.WithLabelValues("trash")))
	assert.Equal(t, 5.0, testutil.ToFloat64(LibraryPhotos.WithLabelValues("favorite")))
	assert.Equal(t, 2.0, testutil.ToFloat64(LibraryFolders))
}

func TestCollectKeepsGaugesOnError(t *testing.T) {
	LibraryFolders.Set(7)
	Collect(context.Background(), fakeStats{err: errors.New("db closed")})
	assert.Equal(t, 7.0, testutil.ToFloat64(LibraryFolders))
}

func TestSnapshotIncludesInitializedSeries(t *testing.T) {
	InitializeMetrics()
	ThumbnailCacheHits.Inc()

	var buf bytes.Buffer
	require.NoError(t, Snapshot(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE photoref_thumbnail_cache_hits_total counter")
	assert.Contains(t, out, "photoref_thumbnail_cache_hits_total ")
	assert.Contains(t, out, `photoref_import_files_total{result="skipped"} `)
	assert.Contains(t, out, "photoref_import_duration_seconds_count ")
	assert.NotContains(t, out, "go_goroutines")
}

func TestSnapshotWritesHistogramBuckets(t *testing.T) {
	InitializeMetrics()
	ThumbnailGenerationDuration.Observe(0.02)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var buckets int
	for _, mf := range families {
		if mf.GetName() == "photoref_thumbnail_generation_duration_seconds" {
			require.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
			buckets = len(mf.GetMetric()[0].GetHistogram().GetBucket())
		}
	}
	require.Positive(t, buckets)

	var buf bytes.Buffer
	require.NoError(t, Snapshot(&buf))
	out := buf.String()

	// one line per bucket plus +Inf
	assert.Equal(t, buckets+1, strings.Count(out, "photoref_thumbnail_generation_duration_seconds_bucket{"))
	assert.Contains(t, out, `photoref_thumbnail_generation_duration_seconds_bucket{le="+Inf"}`)
	assert.Contains(t, out, "photoref_thumbnail_generation_duration_seconds_sum ")
}
