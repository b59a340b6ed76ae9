package searchindex

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/searchcal/internal/domain/search"
)

// MemoryIndex keeps rows in process. It is the default backend and the one
// tests run against.
type MemoryIndex struct {
	mu      sync.RWMutex
	indexes map[string]map[string]search.Row
	facets  bool
}

// NewMemoryIndex constructs an empty index. facets toggles the faceting
// capability so callers can exercise backends without it.
func NewMemoryIndex(facets bool) *MemoryIndex {
	return &MemoryIndex{
		indexes: make(map[string]map[string]search.Row),
		facets:  facets,
	}
}

// Capabilities implements search.Searcher.
func (m *MemoryIndex) Capabilities() search.Capabilities {
	return search.Capabilities{Facets: m.facets, Substring: true}
}

// Put implements search.Indexer.
func (m *MemoryIndex) Put(_ context.Context, index string, rows []search.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.indexes[index]
	if !ok {
		docs = make(map[string]search.Row)
		m.indexes[index] = docs
	}
	for _, row := range rows {
		docs[row.ID] = cloneRow(row)
	}
	return nil
}

// Search implements search.Searcher.
func (m *MemoryIndex) Search(ctx context.Context, q search.Query) (search.Result, error) {
	if err := ctx.Err(); err != nil {
		return search.Result{}, err
	}
	if len(q.Facets) > 0 && !m.facets {
		return search.Result{}, search.ErrFacetsUnsupported
	}

	m.mu.RLock()
	matched := make([]search.Row, 0)
	for _, row := range m.indexes[q.Index] {
		if search.Match(row, q.Conditions) {
			matched = append(matched, cloneRow(row))
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	result := search.Result{Total: len(matched), Rows: window(matched, q.Offset, q.Limit)}
	if len(q.Facets) > 0 {
		result.Facets = make(map[string][]search.FacetBucket, len(q.Facets))
		for _, req := range q.Facets {
			result.Facets[req.Field] = search.CountFacet(matched, req)
		}
	}
	return result, nil
}

// Len reports how many rows index holds.
func (m *MemoryIndex) Len(index string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexes[index])
}

func window(rows []search.Row, offset, limit int) []search.Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) || limit == 0 {
		return []search.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func cloneRow(row search.Row) search.Row {
	out := search.Row{ID: row.ID, URL: row.URL, Fields: make(map[string]string, len(row.Fields))}
	for k, v := range row.Fields {
		out.Fields[k] = v
	}
	return out
}
