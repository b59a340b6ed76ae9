package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yanqian/searchcal/internal/domain/search"
)

// Format is the serialization of a snapshot object.
type Format int

const (
	// FormatJSON is a single JSON array of rows.
	FormatJSON Format = iota
	// FormatJSONL is one row per line.
	FormatJSONL
)

// FormatFor picks the format from the object key's extension.
func FormatFor(key string) Format {
	lower := strings.ToLower(key)
	if strings.HasSuffix(lower, ".jsonl") || strings.HasSuffix(lower, ".ndjson") {
		return FormatJSONL
	}
	return FormatJSON
}

// Decode reads rows from r. Blank JSONL lines are skipped.
func Decode(r io.Reader, format Format) ([]search.Row, error) {
	if format == FormatJSON {
		var rows []search.Row
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	rows := make([]search.Row, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var row search.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

// Encode writes rows to w.
func Encode(w io.Writer, rows []search.Row, format Format) error {
	if rows == nil {
		rows = []search.Row{}
	}
	enc := json.NewEncoder(w)
	if format == FormatJSON {
		return enc.Encode(rows)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
