package migrate

import (
	"context"
	"fmt"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog/log"
)

// maxLoggedItemFailures caps per-item failure logs for one batch
const maxLoggedItemFailures = 10

// BulkIndexer writes one page of documents into a physical index per call
type BulkIndexer struct {
	backend SearchBackend
}

func NewBulkIndexer(backend SearchBackend) *BulkIndexer {
	return &BulkIndexer{backend: backend}
}

// Index bulk-writes docs into physical and returns how many were accepted.
// An empty batch returns 0 without calling the backend. A whole-batch failure is
// returned as an error; per-item failures are logged and left out of the count.
func (i *BulkIndexer) Index(ctx context.Context, physical string, docs []types.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	batch := make([]types.Document, len(docs))
	for n, doc := range docs {
		if doc.Index == "" {
			doc.Index = physical
		}
		if doc.Index != physical {
			return 0, &types.ErrDocumentTarget{ID: doc.ID, Expected: physical, Actual: doc.Index}
		}
		batch[n] = doc
	}

	resp, err := i.backend.Bulk(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("bulk write to %s: %w", physical, err)
	}

	if !resp.Errors {
		return len(batch), nil
	}

	failed := resp.Failed()
	for n, item := range failed {
		if n >= maxLoggedItemFailures {
			log.Warn().
				Str("index", physical).
				Int("remaining", len(failed)-n).
				Msg("more bulk item failures not logged")
			break
		}

		event := log.Warn().
			Str("index", item.Index).
			Str("id", item.ID).
			Int("status", item.Status)
		if item.Error != nil {
			event = event.Str("type", item.Error.Type).Str("reason", item.Error.Reason)
		}
		event.Msg("bulk item failed")
	}

	log.Warn().
		Str("index", physical).
		Int("failed", len(failed)).
		Int("batch", len(batch)).
		Msg("bulk write completed with item failures")

	return len(batch) - len(failed), nil
}
