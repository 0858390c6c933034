package ports

import (
	"context"

	"github.com/vshulcz/airgauge/internal/domain"
)

// ReadingFetcher performs one poll of a sensor endpoint.
type ReadingFetcher interface {
	Fetch(ctx context.Context, src domain.Source) (domain.Reading, error)
}

// HostCollector samples gauges that do not come from a sensor endpoint.
type HostCollector interface {
	Source() domain.Source
	Collect(ctx context.Context) (map[string]float64, error)
}
