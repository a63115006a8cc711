package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/beam-cloud/searchmigrate/pkg/search"
	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// --- Fake search cluster ---

type fakeIndex struct {
	aliases map[string]bool
	docs    map[string]json.RawMessage
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{aliases: map[string]bool{}, docs: map[string]json.RawMessage{}}
}

func (f *fakeIndex) clone() *fakeIndex {
	c := newFakeIndex()
	for a := range f.aliases {
		c.aliases[a] = true
	}
	for id, doc := range f.docs {
		c.docs[id] = doc
	}
	return c
}

type fakeBackend struct {
	mu      sync.Mutex
	indices map[string]*fakeIndex

	bulkCalls   int
	aliasCalls  int
	failBulkAt  int    // fail the Nth bulk call (1-based), 0 disables
	failPutOn   string // PutAlias onto this index fails
	hiddenNames map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{indices: map[string]*fakeIndex{}, hiddenNames: map[string]bool{}}
}

func notFound(op, name string) error {
	return &types.ErrBackend{Op: op, Status: 404, Type: "index_not_found_exception", Reason: "no such index [" + name + "]"}
}

// seed creates an index holding the given aliases, outside any migration
func (b *fakeBackend) seed(name string, aliases ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := newFakeIndex()
	for _, a := range aliases {
		idx.aliases[a] = true
	}
	b.indices[name] = idx
}

func (b *fakeBackend) seedDoc(index, id, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.indices[index].docs[id] = json.RawMessage(source)
}

func (b *fakeBackend) has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.indices[name]
	return ok
}

func (b *fakeBackend) boundTo(alias string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for name, idx := range b.indices {
		if idx.aliases[alias] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (b *fakeBackend) docIDs(index string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, ok := b.indices[index]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *fakeBackend) CreateIndex(ctx context.Context, name string, tmpl search.Template) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.indices[name]; ok {
		return &types.ErrProvisioningConflict{Index: name}
	}
	b.indices[name] = newFakeIndex()
	return nil
}

func (b *fakeBackend) DeleteIndex(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.indices[name]; !ok {
		return notFound("delete index "+name, name)
	}
	delete(b.indices, name)
	return nil
}

func (b *fakeBackend) IndexExists(ctx context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.indices[name]
	return ok, nil
}

func (b *fakeBackend) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for name := range b.indices {
		if strings.HasPrefix(name, prefix) && !b.hiddenNames[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *fakeBackend) Refresh(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.indices[name]; !ok {
		return notFound("refresh "+name, name)
	}
	return nil
}

func (b *fakeBackend) Reindex(ctx context.Context, source, dest string) (*search.ReindexResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.indices[source]
	if !ok {
		return nil, notFound("reindex", source)
	}
	dst, ok := b.indices[dest]
	if !ok {
		return nil, notFound("reindex", dest)
	}
	for id, doc := range src.docs {
		dst.docs[id] = doc
	}
	n := int64(len(src.docs))
	return &search.ReindexResult{Total: n, Created: n}, nil
}

func (b *fakeBackend) GetAliases(ctx context.Context, name string) (map[string][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := map[string][]string{}
	collect := func(index string, idx *fakeIndex) {
		aliases := []string{}
		for a := range idx.aliases {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		out[index] = aliases
	}

	if idx, ok := b.indices[name]; ok {
		collect(name, idx)
		return out, nil
	}
	for index, idx := range b.indices {
		if idx.aliases[name] {
			collect(index, idx)
		}
	}
	return out, nil
}

func (b *fakeBackend) UpdateAliases(ctx context.Context, actions []search.AliasAction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aliasCalls++

	// Apply to a copy and commit only if every action succeeds
	next := make(map[string]*fakeIndex, len(b.indices))
	for name, idx := range b.indices {
		next[name] = idx.clone()
	}

	for _, action := range actions {
		switch {
		case action.Add != nil:
			idx, ok := next[action.Add.Index]
			if !ok {
				return notFound("update aliases", action.Add.Index)
			}
			idx.aliases[action.Add.Alias] = true
		case action.Remove != nil:
			idx, ok := next[action.Remove.Index]
			if !ok {
				return notFound("update aliases", action.Remove.Index)
			}
			if !idx.aliases[action.Remove.Alias] {
				return &types.ErrBackend{Op: "update aliases", Status: 404, Type: "aliases_not_found_exception", Reason: action.Remove.Alias}
			}
			delete(idx.aliases, action.Remove.Alias)
		case action.RemoveIndex != nil:
			if _, ok := next[action.RemoveIndex.Index]; !ok {
				return notFound("update aliases", action.RemoveIndex.Index)
			}
			delete(next, action.RemoveIndex.Index)
		}
	}

	for _, idx := range next {
		for a := range idx.aliases {
			if _, clash := next[a]; clash {
				return &types.ErrBackend{Op: "update aliases", Status: 400, Type: "invalid_alias_name_exception", Reason: "an index exists with the same name as the alias [" + a + "]"}
			}
		}
	}

	b.indices = next
	return nil
}

func (b *fakeBackend) PutAlias(ctx context.Context, index, alias string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aliasCalls++
	if index == b.failPutOn {
		return &types.ErrTransport{Op: "put alias", Err: fmt.Errorf("connection reset")}
	}
	idx, ok := b.indices[index]
	if !ok {
		return notFound("put alias", index)
	}
	idx.aliases[alias] = true
	return nil
}

func (b *fakeBackend) DeleteAlias(ctx context.Context, index, alias string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aliasCalls++
	idx, ok := b.indices[index]
	if !ok || !idx.aliases[alias] {
		return &types.ErrBackend{Op: "delete alias", Status: 404, Type: "aliases_not_found_exception", Reason: alias}
	}
	delete(idx.aliases, alias)
	return nil
}

func (b *fakeBackend) Bulk(ctx context.Context, docs []types.Document) (*search.BulkResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bulkCalls++
	if b.failBulkAt > 0 && b.bulkCalls == b.failBulkAt {
		return nil, &types.ErrTransport{Op: "bulk", Err: context.DeadlineExceeded}
	}

	resp := &search.BulkResponse{}
	for _, doc := range docs {
		op := doc.Op()
		item := search.BulkItem{Index: doc.Index, ID: doc.ID, Status: 200}

		idx, ok := b.indices[doc.Index]
		switch {
		case !ok:
			item.Status = 404
			item.Error = &search.BulkItemFailure{Type: "index_not_found_exception", Reason: doc.Index}
		case op == types.OpDelete:
			delete(idx.docs, doc.ID)
		case op == types.OpUpdate:
			if _, exists := idx.docs[doc.ID]; !exists && !doc.DocAsUpsert {
				item.Status = 404
				item.Error = &search.BulkItemFailure{Type: "document_missing_exception", Reason: doc.ID}
				break
			}
			idx.docs[doc.ID] = doc.Doc
		default:
			idx.docs[doc.ID] = doc.Source
		}

		if item.Error != nil {
			resp.Errors = true
		}
		resp.Items = append(resp.Items, map[string]search.BulkItem{op: item})
	}
	return resp, nil
}

// --- Stalled ledger ---

// stalledLedger holds every call until the caller's context ends
type stalledLedger struct{}

func (stalledLedger) HighestVersion(ctx context.Context, alias string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (stalledLedger) ReserveVersion(ctx context.Context, alias string, version int, physical string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledLedger) MarkCurrent(ctx context.Context, alias string, version int, physical string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledLedger) MarkDeleted(ctx context.Context, physical string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledLedger) ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// --- Fake source store ---

type exportCall struct {
	Category string
	Index    string
	Start    int64
	End      int64
}

type fakeSource struct {
	mu    sync.Mutex
	rows  map[string][]int64
	calls []exportCall

	// afterSnapshot rows are inserted right after MaxID is read
	afterSnapshot map[string][]int64

	// beforeExport runs ahead of every page export; an error fails the page
	beforeExport func(ctx context.Context) error
}

func newFakeSource() *fakeSource {
	return &fakeSource{rows: map[string][]int64{}, afterSnapshot: map[string][]int64{}}
}

func (s *fakeSource) add(category string, ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[category] = append(s.rows[category], ids...)
}

func (s *fakeSource) exports(category string) []exportCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []exportCall
	for _, c := range s.calls {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSource) MaxID(ctx context.Context, category types.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var highest int64
	for _, id := range s.rows[category.Name] {
		if id > highest {
			highest = id
		}
	}
	s.rows[category.Name] = append(s.rows[category.Name], s.afterSnapshot[category.Name]...)
	return highest, nil
}

func (s *fakeSource) ExportPage(ctx context.Context, category types.Category, index string, pageStart, pageEnd int64) ([]types.Document, error) {
	if s.beforeExport != nil {
		if err := s.beforeExport(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, exportCall{Category: category.Name, Index: index, Start: pageStart, End: pageEnd})

	var docs []types.Document
	for _, id := range s.rows[category.Name] {
		if id < pageStart || id >= pageEnd {
			continue
		}
		key := category.Name + "-" + strconv.FormatInt(id, 10)
		docs = append(docs, types.Document{
			Index:  index,
			ID:     key,
			Source: json.RawMessage(fmt.Sprintf(`{"id":%d,"category":%q}`, id, category.Name)),
		})
	}
	return docs, nil
}

func seq(from, to int64) []int64 {
	var ids []int64
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}
