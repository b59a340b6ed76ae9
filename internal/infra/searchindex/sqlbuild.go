package searchindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yanqian/searchcal/internal/domain/search"
)

// PlaceholderStyle selects the bind parameter syntax of a driver.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	style PlaceholderStyle
	// field renders the expression reading a document field given the
	// placeholder bound to the field name.
	field func(ph string) string
	// fieldArg turns a field name into the bound value field expects.
	fieldArg func(name string) any
	// document casts the bound JSON document for the fields column.
	document func(ph string) string
}

var postgresDialect = dialect{
	style:    PlaceholderDollar,
	field:    func(ph string) string { return "(fields ->> " + ph + "::text)" },
	fieldArg: func(name string) any { return name },
	document: func(ph string) string { return ph + "::jsonb" },
}

var sqliteDialect = dialect{
	style:    PlaceholderQuestion,
	field:    func(ph string) string { return "json_extract(fields, " + ph + ")" },
	fieldArg: func(name string) any { return `$."` + name + `"` },
	document: func(ph string) string { return ph },
}

type builder struct {
	d    dialect
	args []any
}

func newBuilder(d dialect) *builder {
	return &builder{d: d}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	if b.d.style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

// field binds the name afresh on every call so question placeholders stay
// positional.
func (b *builder) field(name string) string {
	return b.d.field(b.arg(b.d.fieldArg(name)))
}

// where renders the index scope and the condition tree.
func (b *builder) where(q search.Query) string {
	clause := "index_name = " + b.arg(q.Index)
	if q.Conditions.HasConditions() {
		clause += " AND " + b.group(q.Conditions)
	}
	return clause
}

func (b *builder) group(g search.ConditionGroup) string {
	parts := make([]string, 0, len(g.Conditions)+len(g.Groups))
	for _, cond := range g.Conditions {
		parts = append(parts, b.condition(cond))
	}
	for _, child := range g.Groups {
		if !child.HasConditions() {
			continue
		}
		parts = append(parts, b.group(child))
	}
	if len(parts) == 0 {
		return "1 = 1"
	}
	sep := " AND "
	if g.Conjunction == search.ConjunctionOr {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (b *builder) condition(c search.Condition) string {
	switch c.Operator {
	case search.OpEqual:
		return b.field(c.Field) + " = " + b.arg(c.Value)
	case search.OpNotEqual:
		return "(" + b.field(c.Field) + " IS NULL OR " + b.field(c.Field) + " <> " + b.arg(c.Value) + ")"
	case search.OpContains:
		return "LOWER(" + b.field(c.Field) + ") LIKE " + b.arg("%"+escapeLike(strings.ToLower(c.Value))+"%") + ` ESCAPE '\'`
	default:
		return "1 = 0"
	}
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}

// selectRows renders the row query, or "" when the window is count-only.
func selectRows(d dialect, q search.Query) (string, []any) {
	if q.Limit == 0 {
		return "", nil
	}
	b := newBuilder(d)
	stmt := "SELECT id, url, fields FROM documents WHERE " + b.where(q) + " ORDER BY id"
	switch {
	case q.Limit > 0:
		stmt += " LIMIT " + b.arg(q.Limit)
	case q.Offset > 0 && d.style == PlaceholderQuestion:
		// sqlite wants a LIMIT before OFFSET
		stmt += " LIMIT -1"
	}
	if q.Offset > 0 {
		stmt += " OFFSET " + b.arg(q.Offset)
	}
	return stmt, b.args
}

func countRows(d dialect, q search.Query) (string, []any) {
	b := newBuilder(d)
	return "SELECT COUNT(*) FROM documents WHERE " + b.where(q), b.args
}

// facetValues groups the matching rows by the field, the way a facet engine
// would: count descending, value ascending.
func facetValues(d dialect, q search.Query, req search.FacetRequest) (string, []any) {
	minCount := req.MinCount
	if minCount < 1 {
		minCount = 1
	}
	b := newBuilder(d)
	value := b.field(req.Field)
	where := b.where(q)
	present := b.field(req.Field)
	nonEmpty := b.field(req.Field)
	stmt := fmt.Sprintf(
		"SELECT %s AS value, COUNT(*) AS cnt FROM documents WHERE %s AND %s IS NOT NULL AND %s <> '' GROUP BY 1 HAVING COUNT(*) >= %s ORDER BY cnt DESC, value ASC",
		value, where, present, nonEmpty, b.arg(minCount),
	)
	if req.Limit >= 0 {
		stmt += " LIMIT " + b.arg(req.Limit)
	}
	return stmt, b.args
}

func facetMissing(d dialect, q search.Query, req search.FacetRequest) (string, []any) {
	b := newBuilder(d)
	where := b.where(q)
	isNull := b.field(req.Field)
	isEmpty := b.field(req.Field)
	return fmt.Sprintf("SELECT COUNT(*) FROM documents WHERE %s AND (%s IS NULL OR %s = '')", where, isNull, isEmpty), b.args
}

func upsertRow(d dialect, index string, row search.Row, fields []byte) (string, []any) {
	b := newBuilder(d)
	stmt := fmt.Sprintf(
		"INSERT INTO documents (index_name, id, url, fields) VALUES (%s, %s, %s, %s) ON CONFLICT (index_name, id) DO UPDATE SET url = excluded.url, fields = excluded.fields",
		b.arg(index), b.arg(row.ID), b.arg(row.URL), d.document(b.arg(string(fields))),
	)
	return stmt, b.args
}
