package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_db_queries_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoref_db_query_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoref_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_thumbnail_generations_total",
			Help: "Total number of thumbnail generation attempts",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photoref_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail decode+resize+encode duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoref_thumbnail_cache_hits_total",
			Help: "Thumbnail requests served from the on-disk cache",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoref_thumbnail_cache_misses_total",
			Help: "Thumbnail requests that required generation",
		},
	)

	ThumbnailInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoref_thumbnail_invalidations_total",
			Help: "Thumbnail cache entries removed by purge or folder deletion",
		},
	)
)

// Metadata cache metrics
var (
	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoref_metadata_cache_hits_total",
			Help: "File info lookups served from the metadata cache",
		},
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoref_metadata_cache_misses_total",
			Help: "File info lookups that were missing or stale",
		},
	)

	MetadataCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_metadata_cache_errors_total",
			Help: "Metadata cache failures by kind",
		},
		[]string{"kind"},
	)
)

// Import metrics
var (
	ImportFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_import_files_total",
			Help: "Files seen by the import pipeline by result",
		},
		[]string{"result"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photoref_import_duration_seconds",
			Help:    "Duration of folder/file import runs in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photoref_worker_pool_size",
			Help: "Concurrency of the most recent worker pool run",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_filesystem_retry_attempts_total",
			Help: "Retries of transient filesystem errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoref_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Library gauges, refreshed by Collector
var (
	LibraryPhotos = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photoref_library_photos",
			Help: "Number of photos by state",
		},
		[]string{"state"},
	)

	LibraryFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photoref_library_folders",
			Help: "Number of registered folders",
		},
	)
)
