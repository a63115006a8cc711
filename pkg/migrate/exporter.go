package migrate

import (
	"context"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/repository"
	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// Pages plans the id windows for a category pass. Windows have width increment,
// start at 0, cover [0, maxID] without gaps and end with one extra window past the
// last covering one, so rows inserted at the boundary during the scan are caught.
func Pages(maxID, increment int64) []types.Page {
	if maxID < 0 {
		maxID = 0
	}
	if increment <= 0 {
		increment = types.DefaultIncrement
	}

	covering := int(maxID/increment) + 1
	pages := make([]types.Page, 0, covering+1)

	var start int64
	for n := 1; n <= covering+1; n++ {
		end := start + increment
		pages = append(pages, types.Page{
			Number:   n,
			Start:    start,
			End:      end,
			Total:    covering,
			Overscan: n > covering,
		})
		start = end
	}
	return pages
}

// Exporter windows category exports out of the source store. It performs no
// retries and never transforms documents.
type Exporter struct {
	source  repository.SourceRepository
	timeout time.Duration
}

func NewExporter(source repository.SourceRepository, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Exporter{source: source, timeout: timeout}
}

// MaxID snapshots the highest identifier of a category
func (e *Exporter) MaxID(ctx context.Context, category types.Category) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.source.MaxID(ctx, category)
}

// Export returns the documents of category with ids in [pageStart, pageEnd),
// each stamped for index. An empty page is not an error.
func (e *Exporter) Export(ctx context.Context, category types.Category, index string, pageStart, pageEnd int64) ([]types.Document, error) {
	if pageStart < 0 || pageStart >= pageEnd {
		return nil, &types.ErrInvalidPage{Start: pageStart, End: pageEnd}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.source.ExportPage(ctx, category, index, pageStart, pageEnd)
}
