// Package metrics provides Prometheus instrumentation for the photo library.
//
// All collectors are registered with the default registry through promauto
// and prefixed with "photoref_". The library runs single-process and offline,
// so nothing is served over the network; Snapshot renders the current values
// in the Prometheus text exposition format for the CLI "stats" command, and
// tests read individual collectors with prometheus/testutil.
//
// # Categories
//
// Database:
//   - DBQueryTotal / DBQueryDuration by operation
//   - DBTransactionDuration by outcome (commit, rollback)
//
// Thumbnails:
//   - ThumbnailGenerationsTotal by status
//   - ThumbnailGenerationDuration
//   - ThumbnailCacheHits / ThumbnailCacheMisses / ThumbnailInvalidations
//
// Metadata cache:
//   - MetadataCacheHits / MetadataCacheMisses / MetadataCacheErrors
//
// Import:
//   - ImportFilesTotal by result (imported, skipped, failed)
//   - ImportDuration
//
// Filesystem retries and library gauges (photos, folders, trash, favorites)
// round out the set.
package metrics
