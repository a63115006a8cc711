package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// GetAliases resolves name (an alias or a concrete index) to a map of
// physical index name -> aliases that index holds. A missing name yields an empty map.
func (c *Client) GetAliases(ctx context.Context, name string) (map[string][]string, error) {
	var result map[string]struct {
		Aliases map[string]any `json:"aliases"`
	}

	err := c.doJSON(ctx, c.adminTimeout, "get aliases "+name, http.MethodGet, "/"+url.PathEscape(name)+"/_alias", nil, &result)

	var backendErr *types.ErrBackend
	if errors.As(err, &backendErr) && backendErr.IsNotFound() {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	bindings := make(map[string][]string, len(result))
	for index, entry := range result {
		aliases := make([]string, 0, len(entry.Aliases))
		for alias := range entry.Aliases {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		bindings[index] = aliases
	}
	return bindings, nil
}

// AliasAction is one entry of an _aliases request
type AliasAction struct {
	Add         *AliasTarget `json:"add,omitempty"`
	Remove      *AliasTarget `json:"remove,omitempty"`
	RemoveIndex *IndexTarget `json:"remove_index,omitempty"`
}

type AliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

type IndexTarget struct {
	Index string `json:"index"`
}

// AddAlias builds an add action
func AddAlias(index, alias string) AliasAction {
	return AliasAction{Add: &AliasTarget{Index: index, Alias: alias}}
}

// RemoveAlias builds a remove action
func RemoveAlias(index, alias string) AliasAction {
	return AliasAction{Remove: &AliasTarget{Index: index, Alias: alias}}
}

// RemoveConcreteIndex builds a remove_index action, deleting a concrete index in the
// same atomic step that binds its name as an alias elsewhere
func RemoveConcreteIndex(index string) AliasAction {
	return AliasAction{RemoveIndex: &IndexTarget{Index: index}}
}

// UpdateAliases applies all actions atomically in a single request
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	body := map[string]any{"actions": actions}
	return c.doJSON(ctx, c.adminTimeout, "update aliases", http.MethodPost, "/_aliases", body, nil)
}

// PutAlias binds alias to index
func (c *Client) PutAlias(ctx context.Context, index, alias string) error {
	path := "/" + url.PathEscape(index) + "/_alias/" + url.PathEscape(alias)
	return c.doJSON(ctx, c.adminTimeout, "put alias "+alias, http.MethodPut, path, nil, nil)
}

// DeleteAlias unbinds alias from index
func (c *Client) DeleteAlias(ctx context.Context, index, alias string) error {
	path := "/" + url.PathEscape(index) + "/_alias/" + url.PathEscape(alias)
	return c.doJSON(ctx, c.adminTimeout, "delete alias "+alias, http.MethodDelete, path, nil, nil)
}
