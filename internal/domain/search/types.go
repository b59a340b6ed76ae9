package search

import (
	"context"
	"errors"
	"strings"
)

// ErrFacetsUnsupported is returned by backends asked to facet without the capability.
var ErrFacetsUnsupported = errors.New("search backend does not support facets")

// Row is one result document. Fields hold the rendered field output keyed by
// machine name; values may still contain markup.
type Row struct {
	ID     string            `json:"id"`
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// Field returns the rendered value of name, or "".
func (r Row) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// FacetBucket is one value/count pair. Filter carries the engine's quoted
// representation of the value, e.g. `"2021"`; "!" denotes the missing bucket.
type FacetBucket struct {
	Filter string `json:"filter"`
	Count  int    `json:"count"`
}

// Value returns the bucket value with surrounding quotes removed.
func (b FacetBucket) Value() string {
	return strings.Trim(b.Filter, `"`)
}

// Result is the outcome of a query.
type Result struct {
	Rows   []Row                    `json:"rows"`
	Total  int                      `json:"total"`
	Facets map[string][]FacetBucket `json:"facets,omitempty"`
}

// Capabilities advertises optional backend features.
type Capabilities struct {
	Facets    bool
	Substring bool
}

// Searcher executes queries.
type Searcher interface {
	Search(ctx context.Context, q Query) (Result, error)
	Capabilities() Capabilities
}

// Indexer stores rows; Put replaces rows sharing an ID.
type Indexer interface {
	Put(ctx context.Context, index string, rows []Row) error
}

// Index is a backend that can both store and search.
type Index interface {
	Searcher
	Indexer
}
