package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"photoref/internal/logging"
)

// Stats holds library-wide counts.
type Stats struct {
	ActivePhotos   int
	TrashedPhotos  int
	FavoritePhotos int
	Folders        int
}

// StatsProvider reports current library counts.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Collect refreshes the library gauges from provider.
func Collect(ctx context.Context, provider StatsProvider) {
	stats, err := provider.Stats(ctx)
	if err != nil {
		logging.Warn("Failed to collect library stats: %v", err)
		return
	}

	LibraryPhotos.WithLabelValues("active").Set(float64(stats.ActivePhotos))
	LibraryPhotos.WithLabelValues("trash").Set(float64(stats.TrashedPhotos))
	LibraryPhotos.WithLabelValues("favorite").Set(float64(stats.FavoritePhotos))
	LibraryFolders.Set(float64(stats.Folders))
}

// Snapshot writes every photoref_* family from the default gatherer in the
// Prometheus text exposition format.
func Snapshot(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "photoref_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
