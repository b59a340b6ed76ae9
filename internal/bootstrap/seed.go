package bootstrap

import (
	"context"
	"fmt"

	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/domain/search"
)

// RowLoader reads a stored set of rows, e.g. an object storage snapshot.
type RowLoader interface {
	Load(ctx context.Context, key string) ([]search.Row, error)
}

// Seed pushes rows through the ingest service in batches of at most batch
// documents and returns how many were stored.
func Seed(ctx context.Context, svc ingest.Service, index string, rows []search.Row, batch int) (int, error) {
	if batch <= 0 {
		batch = 500
	}
	stored := 0
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		docs := make([]ingest.Document, 0, end-start)
		for _, row := range rows[start:end] {
			docs = append(docs, ingest.Document{ID: row.ID, URL: row.URL, Fields: row.Fields})
		}
		res, err := svc.Ingest(ctx, ingest.Request{Index: index, Documents: docs})
		if err != nil {
			return stored, fmt.Errorf("seed rows %d-%d: %w", start, end-1, err)
		}
		stored += res.Indexed
	}
	return stored, nil
}

// SeedFrom loads key from loader and seeds the rows.
func SeedFrom(ctx context.Context, loader RowLoader, key string, svc ingest.Service, index string, batch int) (int, error) {
	rows, err := loader.Load(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	return Seed(ctx, svc, index, rows, batch)
}
