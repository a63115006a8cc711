package migrate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkIndexerEmptyBatch(t *testing.T) {
	backend := newFakeBackend()
	indexer := NewBulkIndexer(backend)

	n, err := indexer.Index(context.Background(), "nodes_v1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, backend.bulkCalls, "empty batch must not reach the backend")
}

func TestBulkIndexerStampsMissingIndex(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("nodes_v1")
	indexer := NewBulkIndexer(backend)

	docs := []types.Document{
		{ID: "a", Source: json.RawMessage(`{"title":"a"}`)},
		{Index: "nodes_v1", ID: "b", Source: json.RawMessage(`{"title":"b"}`)},
	}

	n, err := indexer.Index(context.Background(), "nodes_v1", docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, backend.bulkCalls)
	assert.Equal(t, []string{"a", "b"}, backend.docIDs("nodes_v1"))
}

func TestBulkIndexerRejectsForeignTarget(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("nodes_v1")
	backend.seed("nodes_v2", "nodes")
	indexer := NewBulkIndexer(backend)

	docs := []types.Document{
		{Index: "nodes_v1", ID: "a", Source: json.RawMessage(`{}`)},
		{Index: "nodes_v2", ID: "b", Source: json.RawMessage(`{}`)},
	}

	_, err := indexer.Index(context.Background(), "nodes_v1", docs)

	var target *types.ErrDocumentTarget
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "b", target.ID)
	assert.Equal(t, "nodes_v2", target.Actual)
	assert.Equal(t, 0, backend.bulkCalls, "nothing is written when any document targets another index")
	assert.Empty(t, backend.docIDs("nodes_v2"))
}

func TestBulkIndexerItemFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("nodes_v1")
	indexer := NewBulkIndexer(backend)

	docs := []types.Document{
		{ID: "a", Source: json.RawMessage(`{}`)},
		{OpType: types.OpUpdate, ID: "missing", Doc: json.RawMessage(`{"x":1}`)},
		{OpType: types.OpUpdate, ID: "upserted", Doc: json.RawMessage(`{"x":2}`), DocAsUpsert: true},
		{OpType: types.OpDelete, ID: "gone"},
	}

	n, err := indexer.Index(context.Background(), "nodes_v1", docs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "upserted"}, backend.docIDs("nodes_v1"))
}

func TestBulkIndexerBatchFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("nodes_v1")
	backend.failBulkAt = 1
	indexer := NewBulkIndexer(backend)

	_, err := indexer.Index(context.Background(), "nodes_v1", []types.Document{{ID: "a", Source: json.RawMessage(`{}`)}})
	require.Error(t, err)
	assert.Equal(t, types.ErrorKindTransport, types.KindOf(err))
}
