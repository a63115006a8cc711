package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// Template holds the settings and mappings body used to create new indices
type Template map[string]any

// CreateIndex creates a physical index. An existing index or alias of that name is a
// provisioning conflict; it is never reused or overwritten.
func (c *Client) CreateIndex(ctx context.Context, name string, tmpl Template) error {
	var body any = map[string]any{}
	if tmpl != nil {
		body = tmpl
	}

	err := c.doJSON(ctx, c.adminTimeout, "create index "+name, http.MethodPut, "/"+url.PathEscape(name), body, nil)

	var backendErr *types.ErrBackend
	if errors.As(err, &backendErr) && (backendErr.Type == "resource_already_exists_exception" ||
		backendErr.Type == "invalid_index_name_exception") {
		// invalid_index_name_exception is returned when an alias already owns the name
		return &types.ErrProvisioningConflict{Index: name}
	}
	return err
}

// DeleteIndex deletes a physical index. Missing indices return ErrBackend with status 404.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return c.doJSON(ctx, c.adminTimeout, "delete index "+name, http.MethodDelete, "/"+url.PathEscape(name), nil, nil)
}

// IndexExists reports whether an index or alias with that name exists
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, c.adminTimeout, "index exists "+name, http.MethodHead, "/"+url.PathEscape(name), "", nil)

	var backendErr *types.ErrBackend
	if errors.As(err, &backendErr) && backendErr.IsNotFound() {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// ListIndices returns concrete index names matching a wildcard pattern, sorted
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	var rows []struct {
		Index string `json:"index"`
	}

	path := "/_cat/indices/" + url.PathEscape(pattern) + "?format=json&h=index&expand_wildcards=all"
	err := c.doJSON(ctx, c.adminTimeout, "list indices "+pattern, http.MethodGet, path, nil, &rows)

	var backendErr *types.ErrBackend
	if errors.As(err, &backendErr) && backendErr.IsNotFound() {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Index)
	}
	sort.Strings(names)
	return names, nil
}

// Refresh makes all writes to an index visible to search
func (c *Client) Refresh(ctx context.Context, name string) error {
	return c.doJSON(ctx, c.adminTimeout, "refresh "+name, http.MethodPost, "/"+url.PathEscape(name)+"/_refresh", nil, nil)
}

// Count returns the number of documents in an index or alias
func (c *Client) Count(ctx context.Context, name string) (int64, error) {
	var result struct {
		Count int64 `json:"count"`
	}
	if err := c.doJSON(ctx, c.adminTimeout, "count "+name, http.MethodGet, "/"+url.PathEscape(name)+"/_count", nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// ReindexResult is the synchronous _reindex response
type ReindexResult struct {
	Total    int64            `json:"total"`
	Created  int64            `json:"created"`
	Updated  int64            `json:"updated"`
	Failures []map[string]any `json:"failures"`
}

// Reindex copies every document from source into dest and waits for completion
func (c *Client) Reindex(ctx context.Context, source, dest string) (*ReindexResult, error) {
	body := map[string]any{
		"source": map[string]any{"index": source},
		"dest":   map[string]any{"index": dest},
	}

	var result ReindexResult
	if err := c.doJSON(ctx, c.reindexTimeout, "reindex "+source+" to "+dest, http.MethodPost,
		"/_reindex?wait_for_completion=true&refresh=true", body, &result); err != nil {
		return nil, err
	}

	if len(result.Failures) > 0 {
		return &result, &types.ErrBackend{
			Op:     "reindex " + source + " to " + dest,
			Status: http.StatusOK,
			Type:   "reindex_failures",
			Reason: "reindex reported document failures",
		}
	}
	return &result, nil
}
