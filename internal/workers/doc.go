/*
Package workers sizes and runs the bounded worker pools used for thumbnail
rendering, metadata probing and EXIF extraction during import.

# Sizing

Worker counts are derived from runtime.GOMAXPROCS(0), which respects
container CPU limits, instead of runtime.NumCPU():

	n := workers.ForCPU(8)  // decode/encode work, 1 per CPU, max 8
	n := workers.ForIO(16)  // file probing, 2 per CPU, max 16

PHOTOREF_WORKERS overrides the computed count (still capped by the limit).

# Running

Each runs fn over a slice with at most n goroutines in flight. Tasks are
independent; the first error is returned after all started tasks finish,
and the context passed to fn is cancelled once any task fails:

	err := workers.Each(ctx, n, photos, func(ctx context.Context, p Photo) error {
		cache.GetThumbnail(ctx, p.ID, p.FilePath, size)
		return nil
	})
*/
package workers
