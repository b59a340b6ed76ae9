package searchindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yanqian/searchcal/internal/domain/search"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	index_name TEXT NOT NULL,
	id TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	fields TEXT NOT NULL,
	PRIMARY KEY (index_name, id)
)`

// SQLiteIndex stores documents in a single SQLite file with the fields
// serialized as JSON.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteIndex, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=busy_timeout(5000)"
	} else {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Capabilities implements search.Searcher.
func (s *SQLiteIndex) Capabilities() search.Capabilities {
	return search.Capabilities{Facets: true, Substring: true}
}

// Put implements search.Indexer.
func (s *SQLiteIndex) Put(ctx context.Context, index string, rows []search.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, row := range rows {
		fields, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("encode fields of %s: %w", row.ID, err)
		}
		stmt, args := upsertRow(sqliteDialect, index, row, fields)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

// Search implements search.Searcher.
func (s *SQLiteIndex) Search(ctx context.Context, q search.Query) (search.Result, error) {
	var result search.Result

	stmt, args := countRows(sqliteDialect, q)
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&result.Total); err != nil {
		return search.Result{}, fmt.Errorf("count: %w", err)
	}

	result.Rows = []search.Row{}
	if stmt, args := selectRows(sqliteDialect, q); stmt != "" {
		rows, err := s.db.QueryContext(ctx, stmt, args...)
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
			buckets, err := s.facet(ctx, q, req)
			if err != nil {
				return search.Result{}, err
			}
			result.Facets[req.Field] = buckets
		}
	}
	return result, nil
}

func (s *SQLiteIndex) facet(ctx context.Context, q search.Query, req search.FacetRequest) ([]search.FacetBucket, error) {
	stmt, args := facetValues(sqliteDialect, q, req)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
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
	stmt, args = facetMissing(sqliteDialect, q, req)
	var missing int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&missing); err != nil {
		return nil, fmt.Errorf("facet %s missing: %w", req.Field, err)
	}
	return appendMissing(buckets, missing, req), nil
}
