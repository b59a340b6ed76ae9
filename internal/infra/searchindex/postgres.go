package searchindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/searchcal/internal/domain/search"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	index_name TEXT NOT NULL,
	id TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	fields JSONB NOT NULL,
	PRIMARY KEY (index_name, id)
)`

// PostgresIndex implements search.Index on a JSONB documents table.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresIndex constructs the index over an existing pool.
func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

// EnsureSchema creates the documents table when missing.
func (p *PostgresIndex) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)
	return err
}

// Capabilities implements search.Searcher.
func (p *PostgresIndex) Capabilities() search.Capabilities {
	return search.Capabilities{Facets: true, Substring: true}
}

// Put implements search.Indexer.
func (p *PostgresIndex) Put(ctx context.Context, index string, rows []search.Row) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		fields, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("encode fields of %s: %w", row.ID, err)
		}
		stmt, args := upsertRow(postgresDialect, index, row, fields)
		batch.Queue(stmt, args...)
	}
	if batch.Len() == 0 {
		return nil
	}
	return p.pool.SendBatch(ctx, batch).Close()
}

// Search implements search.Searcher.
func (p *PostgresIndex) Search(ctx context.Context, q search.Query) (search.Result, error) {
	var result search.Result

	stmt, args := countRows(postgresDialect, q)
	if err := p.pool.QueryRow(ctx, stmt, args...).Scan(&result.Total); err != nil {
		return search.Result{}, fmt.Errorf("count: %w", err)
	}

	result.Rows = []search.Row{}
	if stmt, args := selectRows(postgresDialect, q); stmt != "" {
		rows, err := p.pool.Query(ctx, stmt, args...)
		if err != nil {
			return search.Result{}, fmt.Errorf("query rows: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanDocument(rows)
			if err != nil {
				return search.Result{}, err
			}
			result.Rows = append(result.Rows, row)
		}
		if err := rows.Err(); err != nil {
			return search.Result{}, err
		}
	}

	if len(q.Facets) > 0 {
		result.Facets = make(map[string][]search.FacetBucket, len(q.Facets))
		for _, req := range q.Facets {
			buckets, err := p.facet(ctx, q, req)
			if err != nil {
				return search.Result{}, err
			}
			result.Facets[req.Field] = buckets
		}
	}
	return result, nil
}

func (p *PostgresIndex) facet(ctx context.Context, q search.Query, req search.FacetRequest) ([]search.FacetBucket, error) {
	stmt, args := facetValues(postgresDialect, q, req)
	rows, err := p.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("facet %s: %w", req.Field, err)
	}
	defer rows.Close()
	buckets := make([]search.FacetBucket, 0)
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !req.Missing {
		return buckets, nil
	}
	stmt, args = facetMissing(postgresDialect, q, req)
	var missing int
	if err := p.pool.QueryRow(ctx, stmt, args...).Scan(&missing); err != nil {
		return nil, fmt.Errorf("facet %s missing: %w", req.Field, err)
	}
	return appendMissing(buckets, missing, req), nil
}
