package ingest

import (
	"context"
	"time"

	"github.com/yanqian/searchcal/internal/domain/search"
)

// Config controls ingestion and its service tokens.
type Config struct {
	Index    string
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	MaxBatch int
}

// Document is one row as submitted by a producer. ID may be empty.
type Document struct {
	ID     string            `json:"id"`
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// Request is a batch of documents for one index; an empty Index means the
// configured default.
type Request struct {
	Index     string     `json:"index"`
	Documents []Document `json:"documents"`
}

// Result reports what was stored.
type Result struct {
	Index   string   `json:"index"`
	Indexed int      `json:"indexed"`
	IDs     []string `json:"ids"`
}

// Claims describes a validated service token.
type Claims struct {
	Subject   string
	Scope     string
	ExpiresAt time.Time
}

// Invalidator is notified after rows change so derived caches can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ToRows converts documents into index rows without assigning ids.
func ToRows(docs []Document) []search.Row {
	rows := make([]search.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, search.Row{ID: doc.ID, URL: doc.URL, Fields: doc.Fields})
	}
	return rows
}
