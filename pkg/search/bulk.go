package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// BulkResponse is the _bulk response envelope
type BulkResponse struct {
	Took   int64                 `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

// BulkItem is the per-document result of a bulk action
type BulkItem struct {
	Index  string           `json:"_index"`
	ID     string           `json:"_id"`
	Status int              `json:"status"`
	Error  *BulkItemFailure `json:"error,omitempty"`
}

type BulkItemFailure struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Failed returns the items that carry an error. A delete of a missing document
// reports 404 without an error and is not a failure.
func (r *BulkResponse) Failed() []BulkItem {
	var failed []BulkItem
	for _, item := range r.Items {
		for _, result := range item {
			if result.Error != nil {
				failed = append(failed, result)
			}
		}
	}
	return failed
}

// Bulk sends documents in a single _bulk request. Per-item failures are reported in
// the response, not as an error; an error means the whole batch failed.
func (c *Client) Bulk(ctx context.Context, docs []types.Document) (*BulkResponse, error) {
	body, err := encodeBulk(docs)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, c.bulkTimeout, "bulk", http.MethodPost, "/_bulk", "application/x-ndjson", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result BulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &types.ErrTransport{Op: "bulk", Err: fmt.Errorf("decode response: %w", err)}
	}
	return &result, nil
}

type bulkMeta struct {
	Index string `json:"_index,omitempty"`
	ID    string `json:"_id,omitempty"`
}

// encodeBulk renders documents as newline-delimited action/source pairs
func encodeBulk(docs []types.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i := range docs {
		doc := &docs[i]
		op := doc.Op()

		if err := enc.Encode(map[string]bulkMeta{op: {Index: doc.Index, ID: doc.ID}}); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action for %s: %w", doc.ID, err)
		}

		switch op {
		case types.OpDelete:
			continue
		case types.OpUpdate:
			partial := doc.Doc
			if len(partial) == 0 {
				partial = doc.Source
			}
			update := map[string]any{"doc": partial}
			if doc.DocAsUpsert {
				update["doc_as_upsert"] = true
			}
			if err := enc.Encode(update); err != nil {
				return nil, fmt.Errorf("failed to encode bulk update for %s: %w", doc.ID, err)
			}
		case types.OpIndex, types.OpCreate:
			source := doc.Source
			if len(source) == 0 {
				source = doc.Doc
			}
			if len(source) == 0 {
				source = json.RawMessage(`{}`)
			}
			// Compact keeps the source on a single NDJSON line
			if err := json.Compact(&buf, source); err != nil {
				return nil, fmt.Errorf("invalid source for %s: %w", doc.ID, err)
			}
			buf.WriteByte('\n')
		default:
			return nil, fmt.Errorf("unsupported bulk operation %q for %s", op, doc.ID)
		}
	}

	return buf.Bytes(), nil
}
