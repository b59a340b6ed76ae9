package searchindex

import (
	"encoding/json"
	"fmt"

	"github.com/yanqian/searchcal/internal/domain/search"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (search.Row, error) {
	var (
		doc    search.Row
		fields []byte
	)
	if err := row.Scan(&doc.ID, &doc.URL, &fields); err != nil {
		return search.Row{}, fmt.Errorf("scan document: %w", err)
	}
	doc.Fields = make(map[string]string)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return search.Row{}, fmt.Errorf("decode fields of %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func scanBucket(row rowScanner) (search.FacetBucket, error) {
	var (
		value string
		count int
	)
	if err := row.Scan(&value, &count); err != nil {
		return search.FacetBucket{}, fmt.Errorf("scan facet: %w", err)
	}
	return search.FacetBucket{Filter: search.QuoteValue(value), Count: count}, nil
}

func appendMissing(buckets []search.FacetBucket, missing int, req search.FacetRequest) []search.FacetBucket {
	minCount := req.MinCount
	if minCount < 1 {
		minCount = 1
	}
	if missing >= minCount {
		buckets = append(buckets, search.FacetBucket{Filter: "!", Count: missing})
	}
	return buckets
}
